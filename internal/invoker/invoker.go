// Package invoker runs the generator for a batch of app ids, optionally through a
// compatibility layer, and classifies how the run ended.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"acfgen/internal/logger"
)

var (
	// ErrTimeout is returned when the generator exceeded its wall-clock budget.
	ErrTimeout = errors.New("generator timed out")
	// ErrNotRunnable is returned when the tool is not a native executable and no
	// compatibility layer could bridge it.
	ErrNotRunnable = errors.New("tool is not executable on this platform")
	// ErrSpawn is returned for any other failure to start the process.
	ErrSpawn = errors.New("failed to start generator")
)

// DebugFlag asks the generator for verbose output.
const DebugFlag = "-d"

// Layer resolves the compatibility layer command. compat.Manager satisfies it.
type Layer interface {
	Native() bool
	Ensure(ctx context.Context) (string, error)
	Find() (string, bool)
}

// Result describes one generator run.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Layer is the compatibility command used, empty when run directly.
	Layer   string
	Retried bool
	// Command is the full argv that was executed last.
	Command []string
}

// UsedLayer reports whether the run went through a compatibility layer.
func (r Result) UsedLayer() bool { return r.Layer != "" }

// Invoker executes the generator with a bounded timeout.
type Invoker struct {
	Timeout time.Duration
	Layer   Layer
	// WaitDelay bounds how long output pipes are drained after the process is killed.
	WaitDelay time.Duration
}

// New returns an Invoker with the given timeout and layer resolver.
func New(timeout time.Duration, layer Layer) *Invoker {
	return &Invoker{Timeout: timeout, Layer: layer, WaitDelay: 5 * time.Second}
}

// Args builds the generator arguments: optional debug flag, then each id in order.
func Args(ids []string, debug bool) []string {
	args := make([]string, 0, len(ids)+1)
	if debug {
		args = append(args, DebugFlag)
	}
	return append(args, ids...)
}

// Invoke runs toolPath for ids inside workingDir. A nonzero exit status is reported
// in the Result and is not an error. A tool the OS refuses to execute is retried
// once through a discoverable compatibility layer.
func (i *Invoker) Invoke(ctx context.Context, toolPath string, ids []string, debug bool, workingDir string) (Result, error) {
	if err := os.MkdirAll(workingDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create working directory: %w", err)
	}
	// The child runs in workingDir, so a relative tool path would resolve against it.
	absTool, err := filepath.Abs(toolPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve %s: %w", toolPath, err)
	}
	args := Args(ids, debug)

	logger.Info("[INFO] Generating ACF files for App IDs: %s\n", strings.Join(ids, ", "))
	logger.Info("[INFO] Working directory: %s\n", workingDir)

	layer := ""
	if i.Layer != nil && !i.Layer.Native() {
		if layer, err = i.Layer.Ensure(ctx); err != nil {
			logger.Warn("[WARN] %v; trying to run the tool directly\n", err)
		}
	}

	res, err := i.run(ctx, layer, absTool, args, workingDir)
	if errors.Is(err, ErrNotRunnable) && layer == "" {
		if name, ok := i.findLayer(); ok {
			logger.Warn("[WARN] Tool is not a native executable, retrying with %s\n", name)
			res, err = i.run(ctx, name, absTool, args, workingDir)
			res.Retried = true
		}
	}

	switch {
	case errors.Is(err, ErrNotRunnable) && res.Layer == "":
		logger.Error("[ERROR] Cannot execute a Windows executable on this platform without a compatibility layer.\n")
		logger.Info("[INFO] Install wine, or run on Windows.\n")
	case errors.Is(err, ErrTimeout):
		logger.Error("[ERROR] Generator timed out after %s\n", i.Timeout)
	case errors.Is(err, ErrSpawn) && res.Layer == "":
		logger.Error("[ERROR] %v\n", err)
		logger.Info("[INFO] The generator is a Windows program; without a compatibility layer it cannot start here.\n")
	case err != nil:
		logger.Error("[ERROR] %v\n", err)
	case res.ExitCode == 0:
		logger.Success("[SUCCESS] Generator finished successfully\n")
		if res.Stdout != "" {
			logger.Plain("%s\n", strings.TrimRight(res.Stdout, "\r\n"))
		}
	default:
		logger.Warn("[WARN] Generator returned code %d\n", res.ExitCode)
		if res.Stderr != "" {
			logger.Plain("%s\n", strings.TrimRight(res.Stderr, "\r\n"))
		}
	}
	return res, err
}

func (i *Invoker) findLayer() (string, bool) {
	if i.Layer == nil {
		return "", false
	}
	return i.Layer.Find()
}

// run executes one attempt, capturing raw output and decoding it leniently.
func (i *Invoker) run(ctx context.Context, layer, toolPath string, args []string, workingDir string) (Result, error) {
	argv := make([]string, 0, len(args)+2)
	if layer != "" {
		argv = append(argv, layer)
	}
	argv = append(argv, toolPath)
	argv = append(argv, args...)

	res := Result{ExitCode: -1, Layer: layer, Command: argv}
	logger.Info("[INFO] Command: %s\n", strings.Join(argv, " "))

	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workingDir
	cmd.WaitDelay = i.WaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res.Stdout = Decode(stdout.Bytes())
	res.Stderr = Decode(stderr.Bytes())

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w after %s", ErrTimeout, i.Timeout)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	case isExecFormatError(err):
		return res, fmt.Errorf("%w: %v", ErrNotRunnable, err)
	default:
		return res, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
}

// isExecFormatError reports whether the OS rejected the file as an executable.
func isExecFormatError(err error) bool {
	if errors.Is(err, syscall.ENOEXEC) {
		return true
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		msg := strings.ToLower(pathErr.Err.Error())
		return strings.Contains(msg, "exec format error") || strings.Contains(msg, "not a valid win32 application")
	}
	return false
}
