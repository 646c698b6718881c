package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"acfgen/internal/appid"
	"acfgen/internal/config"
	"acfgen/internal/logger"
	"acfgen/internal/pipeline"
)

var errAborted = errors.New("input aborted")

var rule = strings.Repeat("=", 50)

// lineReader asks one question and returns the answer without its newline.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// newLineReader uses readline on an interactive terminal and plain buffered
// reads otherwise (pipes, tests, or when readline cannot start).
func newLineReader(in io.Reader, out io.Writer) lineReader {
	if f, ok := in.(*os.File); ok && f == os.Stdin && readline.DefaultIsTerminal() {
		rl, err := readline.NewEx(&readline.Config{
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err == nil {
			return &terminalReader{rl: rl}
		}
		logger.Warn("[WARN] Error initializing readline: %v; falling back to simple input\n", err)
	}
	return &plainReader{r: bufio.NewReader(in), w: out}
}

type terminalReader struct{ rl *readline.Instance }

func (t *terminalReader) ReadLine(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	line, err := t.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", errAborted
	}
	return line, err
}

func (t *terminalReader) Close() error { return t.rl.Close() }

type plainReader struct {
	r *bufio.Reader
	w io.Writer
}

func (p *plainReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.w, prompt)
	line, err := p.r.ReadString('\n')
	if errors.Is(err, io.EOF) {
		if line == "" {
			return "", errAborted
		}
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

func (p *plainReader) Close() error { return nil }

func showWelcome(w io.Writer) {
	fmt.Fprintf(w, "\n%s\n", rule)
	color.New(color.FgCyan).Fprintln(w, "  Steam ACF File Generator")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "\nThis tool generates ACF files for Steam App IDs using SKSAppManifestGenerator.")
	color.New(color.FgYellow).Fprintln(w, "\nCredits:")
	fmt.Fprintln(w, "  Original tool: SKSAppManifestGenerator by Sak32009")
	fmt.Fprintln(w, "  Repository: https://github.com/Sak32009/SKSAppManifestGenerator")
	fmt.Fprintf(w, "%s\n\n", rule)
}

// promptRequest collects the tool path, generator debug toggle, working directory
// and App IDs. Empty answers keep the configured tool path, enable debug output
// and keep the current working directory.
func promptRequest(cfg config.Config, in lineReader, w io.Writer) (config.Config, pipeline.Request, error) {
	fmt.Fprintln(w, rule)
	color.New(color.FgYellow).Fprintln(w, "Configuration")
	fmt.Fprintln(w, rule)

	answer, err := in.ReadLine(fmt.Sprintf("\nTool path (current: %s, press Enter to keep): ", cfg.ToolPath))
	if err != nil {
		return cfg, pipeline.Request{}, err
	}
	if answer = strings.TrimSpace(answer); answer != "" {
		cfg.ToolPath = answer
	}

	answer, err = in.ReadLine("\nEnable debug output? (Y/n): ")
	if err != nil {
		return cfg, pipeline.Request{}, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		cfg.Debug = true
	default:
		cfg.Debug = false
	}

	current, err := config.ResolveWorkingDir(cfg.WorkingDir)
	if err != nil {
		return cfg, pipeline.Request{}, err
	}
	answer, err = in.ReadLine(fmt.Sprintf("\nWorking directory (current: %s, press Enter to keep): ", current))
	if err != nil {
		return cfg, pipeline.Request{}, err
	}
	if answer = strings.TrimSpace(answer); answer != "" {
		current = answer
	}
	cfg.WorkingDir = current

	fmt.Fprintf(w, "\n%s\n", rule)
	raw, err := in.ReadLine("Enter one or more App IDs (space or comma separated): ")
	if err != nil {
		return cfg, pipeline.Request{}, err
	}
	if ids := appid.Normalize(raw); len(ids) > 0 {
		color.New(color.FgGreen).Fprint(w, "\nValid App IDs: ")
		fmt.Fprintf(w, "%s\n\n", strings.Join(ids, ", "))
	}

	return cfg, pipeline.Request{RawIDs: raw, WorkingDir: cfg.WorkingDir, Debug: cfg.Debug}, nil
}
