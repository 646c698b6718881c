package retriever

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"acfgen/internal/logger"
)

// CommandRunner executes an external program and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	return cmd.CombinedOutput()
}

func seconds(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

// Curl downloads with curl, retrying a fixed number of times.
type Curl struct {
	Bin            string
	Attempts       int
	ConnectTimeout time.Duration
	// MaxTime bounds each individual attempt.
	MaxTime time.Duration
	Run     CommandRunner
	// LookPath resolves Bin for Available.
	LookPath func(string) (string, error)
}

// NewCurl returns a curl strategy with three attempts.
func NewCurl(opts Options) *Curl {
	return &Curl{
		Bin:            "curl",
		Attempts:       3,
		ConnectTimeout: opts.ConnectTimeout,
		MaxTime:        opts.Timeout,
		Run:            ExecRunner,
		LookPath:       exec.LookPath,
	}
}

func (c *Curl) Name() string { return "curl" }

// MaxAttempts is the number of times Fetch runs curl before giving up.
func (c *Curl) MaxAttempts() int { return c.Attempts }

func (c *Curl) Available() bool {
	_, err := c.LookPath(c.Bin)
	return err == nil
}

func (c *Curl) Fetch(ctx context.Context, url, dest string) error {
	return fetchAtomically(dest, func(tmp string) error {
		args := []string{
			"--fail", "--location", "--silent", "--show-error",
			"--connect-timeout", seconds(c.ConnectTimeout),
			"--max-time", seconds(c.MaxTime),
			"--output", tmp,
			url,
		}

		var lastErr error
		for i := 1; i <= c.Attempts; i++ {
			attemptCtx, cancel := context.WithTimeout(ctx, c.MaxTime+c.ConnectTimeout)
			out, err := c.Run(attemptCtx, c.Bin, args...)
			cancel()
			if err == nil {
				return nil
			}
			lastErr = fmt.Errorf("attempt %d/%d: %w: %s", i, c.Attempts, err, strings.TrimSpace(string(out)))
			logger.Debug("[DEBUG] curl %v\n", lastErr)
			if ctx.Err() != nil {
				return lastErr
			}
		}
		return lastErr
	})
}

// Wget downloads with a single wget invocation.
type Wget struct {
	Bin            string
	ConnectTimeout time.Duration
	Timeout        time.Duration
	UserAgent      string
	Run            CommandRunner
	LookPath       func(string) (string, error)
}

// NewWget returns a wget strategy.
func NewWget(opts Options) *Wget {
	return &Wget{
		Bin:            "wget",
		ConnectTimeout: opts.ConnectTimeout,
		Timeout:        opts.Timeout,
		UserAgent:      opts.UserAgent,
		Run:            ExecRunner,
		LookPath:       exec.LookPath,
	}
}

func (w *Wget) Name() string { return "wget" }

func (w *Wget) Available() bool {
	_, err := w.LookPath(w.Bin)
	return err == nil
}

func (w *Wget) Fetch(ctx context.Context, url, dest string) error {
	return fetchAtomically(dest, func(tmp string) error {
		args := []string{
			"--quiet", "--tries=1",
			"--connect-timeout=" + seconds(w.ConnectTimeout),
			"--timeout=" + seconds(w.Timeout),
			"--output-document=" + tmp,
		}
		if w.UserAgent != "" {
			args = append(args, "--user-agent="+w.UserAgent)
		}
		args = append(args, url)

		// wget's --timeout is per read, so the overall bound comes from the context.
		runCtx, cancel := context.WithTimeout(ctx, w.Timeout+w.ConnectTimeout)
		defer cancel()
		if out, err := w.Run(runCtx, w.Bin, args...); err != nil {
			return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	})
}
