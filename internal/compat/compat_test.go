package compat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeHost simulates PATH contents and records executed commands.
type fakeHost struct {
	onPath     map[string]bool
	installs   []string // commands that appear on PATH once installation ran
	runErr     error
	commands   []string
	installRan bool
}

func (h *fakeHost) lookPath(name string) (string, error) {
	if h.onPath[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("not found")
}

func (h *fakeHost) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	h.commands = append(h.commands, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	if h.runErr != nil {
		return []byte("E: failure"), h.runErr
	}
	if len(args) > 0 && args[len(args)-1] != "update" {
		h.installRan = true
		for _, c := range h.installs {
			h.onPath[c] = true
		}
	}
	return nil, nil
}

func newManager(h *fakeHost, uid int) *Manager {
	return &Manager{
		Commands:    []string{"wine", "wine64"},
		Packages:    []string{"wine", "wine64"},
		AutoInstall: true,
		NativeOS:    "windows",
		GOOS:        "linux",
		LookPath:    h.lookPath,
		Run:         h.run,
		Getuid:      func() int { return uid },
	}
}

func TestEnsureNativeIsNoop(t *testing.T) {
	h := &fakeHost{onPath: map[string]bool{}}
	m := newManager(h, 0)
	m.GOOS = "windows"

	name, err := m.Ensure(context.Background())
	if err != nil || name != "" {
		t.Fatalf("Ensure = %q, %v; want empty, nil", name, err)
	}
	if len(h.commands) != 0 {
		t.Errorf("no commands expected on native platform, got %v", h.commands)
	}
}

func TestEnsureFindsSecondCandidate(t *testing.T) {
	h := &fakeHost{onPath: map[string]bool{"wine64": true}}
	name, err := newManager(h, 0).Ensure(context.Background())
	if err != nil || name != "wine64" {
		t.Fatalf("Ensure = %q, %v; want wine64", name, err)
	}
	if len(h.commands) != 0 {
		t.Errorf("no install expected, got %v", h.commands)
	}
}

func TestEnsureInstallsAsRoot(t *testing.T) {
	h := &fakeHost{onPath: map[string]bool{"apt-get": true}, installs: []string{"wine"}}
	name, err := newManager(h, 0).Ensure(context.Background())
	if err != nil || name != "wine" {
		t.Fatalf("Ensure = %q, %v; want wine", name, err)
	}
	want := []string{"apt-get update", "apt-get install -y wine wine64"}
	if diff := cmp.Diff(want, h.commands); diff != "" {
		t.Errorf("commands (-want +got):\n%s", diff)
	}
}

func TestEnsureInstallsWithSudo(t *testing.T) {
	h := &fakeHost{onPath: map[string]bool{"apt-get": true, "sudo": true}, installs: []string{"wine"}}
	if _, err := newManager(h, 1000).Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	want := []string{"sudo -n apt-get update", "sudo -n apt-get install -y wine wine64"}
	if diff := cmp.Diff(want, h.commands); diff != "" {
		t.Errorf("commands (-want +got):\n%s", diff)
	}
}

func TestEnsureInstallFailureIsSwallowed(t *testing.T) {
	h := &fakeHost{onPath: map[string]bool{"apt-get": true}, runErr: errors.New("exit status 100")}
	name, err := newManager(h, 0).Ensure(context.Background())
	if !errors.Is(err, ErrUnavailable) || name != "" {
		t.Fatalf("Ensure = %q, %v; want ErrUnavailable", name, err)
	}
	if diff := cmp.Diff([]string{"apt-get update"}, h.commands); diff != "" {
		t.Errorf("install should stop after failed update (-want +got):\n%s", diff)
	}
}

func TestEnsureNoPackageManager(t *testing.T) {
	h := &fakeHost{onPath: map[string]bool{}}
	if _, err := newManager(h, 0).Ensure(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if len(h.commands) != 0 {
		t.Errorf("unexpected commands %v", h.commands)
	}
}

func TestEnsureAutoInstallDisabled(t *testing.T) {
	h := &fakeHost{onPath: map[string]bool{"apt-get": true}, installs: []string{"wine"}}
	m := newManager(h, 0)
	m.AutoInstall = false
	if _, err := m.Ensure(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if h.installRan {
		t.Error("install must not run when auto install is disabled")
	}
}

func TestEnsureRerunAfterFailedAttempt(t *testing.T) {
	h := &fakeHost{onPath: map[string]bool{}}
	m := newManager(h, 0)
	if _, err := m.Ensure(context.Background()); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	// The layer shows up later, e.g. installed by the user between stages.
	h.onPath["wine"] = true
	name, err := m.Ensure(context.Background())
	if err != nil || name != "wine" {
		t.Fatalf("second Ensure = %q, %v", name, err)
	}
}
