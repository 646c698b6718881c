// Package compat locates, and when necessary installs, the layer (wine) that runs
// the Windows-only generator on other operating systems.
package compat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"acfgen/internal/config"
	"acfgen/internal/logger"
)

// ErrUnavailable is returned when no layer command could be found or installed.
var ErrUnavailable = errors.New("compatibility layer unavailable")

// packageManager describes an update-then-install sequence.
type packageManager struct {
	bin     string
	update  []string
	install []string
}

var packageManagers = []packageManager{
	{bin: "apt-get", update: []string{"update"}, install: []string{"install", "-y"}},
	{bin: "dnf", update: []string{"makecache"}, install: []string{"install", "-y"}},
}

// Manager decides whether a layer is needed and provides its command name.
type Manager struct {
	Commands    []string
	Packages    []string
	AutoInstall bool
	// NativeOS is the GOOS on which no layer is needed.
	NativeOS string
	// GOOS is the current platform; defaults to runtime.GOOS.
	GOOS string

	InstallTimeout time.Duration

	LookPath func(string) (string, error)
	Run      func(ctx context.Context, name string, args ...string) ([]byte, error)
	Getuid   func() int
}

// New builds a Manager from configuration using the real host.
func New(cfg config.Compat) *Manager {
	return &Manager{
		Commands:       cfg.Commands,
		Packages:       cfg.Packages,
		AutoInstall:    cfg.AutoInstall,
		NativeOS:       cfg.NativeOS,
		GOOS:           runtime.GOOS,
		InstallTimeout: 10 * time.Minute,
		LookPath:       exec.LookPath,
		Run:            runCombined,
		Getuid:         os.Getuid,
	}
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	return cmd.CombinedOutput()
}

// Native reports whether the generator runs here without a layer.
func (m *Manager) Native() bool {
	return m.GOOS == m.NativeOS
}

// Find returns the first layer command present on PATH, without installing anything.
func (m *Manager) Find() (string, bool) {
	for _, c := range m.Commands {
		if _, err := m.LookPath(c); err == nil {
			return c, true
		}
	}
	return "", false
}

// Ensure returns the layer command to prefix invocations with. On the native
// platform it returns "" and no error. Otherwise it searches PATH, attempts an
// installation through the system package manager when nothing is found, and
// searches again. Installation failures are logged as warnings only.
func (m *Manager) Ensure(ctx context.Context) (string, error) {
	if m.Native() {
		logger.Debug("[DEBUG] Running on %s, no compatibility layer needed\n", m.GOOS)
		return "", nil
	}

	if name, ok := m.Find(); ok {
		logger.Info("[INFO] Compatibility layer detected: %s\n", name)
		return name, nil
	}

	logger.Warn("[WARN] No compatibility layer (%s) found on PATH\n", strings.Join(m.Commands, ", "))
	if m.AutoInstall {
		if err := m.install(ctx); err != nil {
			logger.Warn("[WARN] Could not install compatibility layer: %v\n", err)
		}
		if name, ok := m.Find(); ok {
			logger.Success("[SUCCESS] Compatibility layer installed: %s\n", name)
			return name, nil
		}
	}

	return "", fmt.Errorf("%w: none of %s found", ErrUnavailable, strings.Join(m.Commands, ", "))
}

// install runs the update-then-install sequence of the first package manager found.
func (m *Manager) install(ctx context.Context) error {
	if len(m.Packages) == 0 {
		return errors.New("no packages configured")
	}

	var pm *packageManager
	for i := range packageManagers {
		if _, err := m.LookPath(packageManagers[i].bin); err == nil {
			pm = &packageManagers[i]
			break
		}
	}
	if pm == nil {
		return errors.New("no supported package manager found")
	}

	var prefix []string
	if m.Getuid() != 0 {
		if _, err := m.LookPath("sudo"); err != nil {
			return fmt.Errorf("%s requires root and sudo is not available", pm.bin)
		}
		// -n fails fast instead of waiting for a password prompt.
		prefix = []string{"sudo", "-n"}
	}

	if m.InstallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.InstallTimeout)
		defer cancel()
	}

	logger.Info("[INFO] Installing %s with %s...\n", strings.Join(m.Packages, ", "), pm.bin)
	steps := [][]string{
		append([]string{pm.bin}, pm.update...),
		append(append([]string{pm.bin}, pm.install...), m.Packages...),
	}
	for _, step := range steps {
		argv := append(append([]string{}, prefix...), step...)
		out, err := m.Run(ctx, argv[0], argv[1:]...)
		if err != nil {
			return fmt.Errorf("%s failed: %w\nOutput: %s", strings.Join(argv, " "), err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}
