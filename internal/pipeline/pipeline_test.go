package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"acfgen/internal/compat"
	"acfgen/internal/config"
	"acfgen/internal/invoker"
	"acfgen/internal/provisioner"
	"acfgen/internal/retriever"
	"acfgen/internal/verifier"
)

type fakeLayer struct{ calls int }

func (l *fakeLayer) Ensure(ctx context.Context) (string, error) {
	l.calls++
	return "", compat.ErrUnavailable
}

type fakeProvisioner struct {
	path  string
	err   error
	calls int
}

func (p *fakeProvisioner) Provision(ctx context.Context) (string, error) {
	p.calls++
	return p.path, p.err
}

type fakeInvoker struct {
	res    invoker.Result
	err    error
	calls  int
	gotIDs []string
	// writes creates these files in the working directory when invoked.
	writes []string
}

func (i *fakeInvoker) Invoke(ctx context.Context, toolPath string, ids []string, debug bool, workingDir string) (invoker.Result, error) {
	i.calls++
	i.gotIDs = ids
	for _, name := range i.writes {
		if err := os.WriteFile(filepath.Join(workingDir, name), nil, 0o644); err != nil {
			return invoker.Result{}, err
		}
	}
	return i.res, i.err
}

func TestRunNoIdentifiersStopsEarly(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc, ;"} {
		l, p, i := &fakeLayer{}, &fakeProvisioner{path: "x"}, &fakeInvoker{}
		pl := &Pipeline{Layer: l, Provisioner: p, Invoker: i, Verify: verifier.Verify}

		_, err := pl.Run(context.Background(), Request{RawIDs: raw, WorkingDir: t.TempDir()})
		if !errors.Is(err, ErrNoIdentifiers) {
			t.Errorf("Run(%q) err = %v, want ErrNoIdentifiers", raw, err)
		}
		if l.calls+p.calls+i.calls != 0 {
			t.Errorf("Run(%q) touched stages: layer=%d provision=%d invoke=%d", raw, l.calls, p.calls, i.calls)
		}
	}
}

func TestRunProvisioningFailureIsFatal(t *testing.T) {
	p := &fakeProvisioner{err: provisioner.ErrProvisioningExhausted}
	i := &fakeInvoker{}
	pl := &Pipeline{Layer: &fakeLayer{}, Provisioner: p, Invoker: i, Verify: verifier.Verify}

	_, err := pl.Run(context.Background(), Request{RawIDs: "730", WorkingDir: t.TempDir()})
	if !errors.Is(err, provisioner.ErrProvisioningExhausted) {
		t.Fatalf("err = %v, want ErrProvisioningExhausted", err)
	}
	if i.calls != 0 {
		t.Error("invoker must not run without a tool")
	}
}

func TestRunVerifiesAfterInvocationFailure(t *testing.T) {
	wd := t.TempDir()
	i := &fakeInvoker{err: invoker.ErrTimeout, writes: []string{"appmanifest_730.acf"}}
	pl := &Pipeline{Layer: &fakeLayer{}, Provisioner: &fakeProvisioner{path: "tool"}, Invoker: i, Verify: verifier.Verify}

	out, err := pl.Run(context.Background(), Request{RawIDs: "730 570", WorkingDir: wd})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(out.InvokeErr, invoker.ErrTimeout) {
		t.Errorf("InvokeErr = %v", out.InvokeErr)
	}
	want := []verifier.Record{{ID: "730", Path: filepath.Join(wd, "appmanifest_730.acf")}}
	if diff := cmp.Diff(want, out.Report.Found); diff != "" {
		t.Errorf("Found (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"570"}, out.Report.Missing); diff != "" {
		t.Errorf("Missing (-want +got):\n%s", diff)
	}
}

func TestRunPassesNormalizedIDs(t *testing.T) {
	i := &fakeInvoker{}
	pl := &Pipeline{Provisioner: &fakeProvisioner{path: "tool"}, Invoker: i, Verify: verifier.Verify}

	if _, err := pl.Run(context.Background(), Request{RawIDs: "٢٧١٥٩٠, 10;10", WorkingDir: t.TempDir()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"271590", "10", "10"}, i.gotIDs); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
}

// TestRunEndToEnd exercises the real stages with a pre-installed script standing
// in for the generator.
func TestRunEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the generator")
	}
	dir := t.TempDir()
	toolPath := filepath.Join(dir, "tools", "gen.exe")
	if err := os.MkdirAll(filepath.Dir(toolPath), 0o755); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\nfor id in \"$@\"; do touch \"appmanifest_$id.acf\"; done\n"
	if err := os.WriteFile(toolPath, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.ToolPath = toolPath
	cfg.ToolName = "gen.exe"
	cfg.PrimaryURL = "http://127.0.0.1:1/unreachable.zip"
	cfg.FallbackURL = "http://127.0.0.1:1/unreachable.exe"
	cfg.InvokeTimeout = 10 * time.Second
	cfg.Compat.NativeOS = runtime.GOOS
	cfg.Compat.AutoInstall = false

	pl := New(cfg)
	// No strategy may run: the tool is already present.
	pl.Provisioner.(*provisioner.Provisioner).Retriever = &retriever.Retriever{}

	wd := filepath.Join(dir, "work")
	out, err := pl.Run(context.Background(), Request{RawIDs: "440", WorkingDir: wd})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.InvokeErr != nil || out.Invocation.ExitCode != 0 {
		t.Fatalf("invocation failed: %+v %v", out.Invocation, out.InvokeErr)
	}
	if !out.Report.Complete() || out.Report.Summary() != "1 of 1 ACF files found" {
		t.Errorf("report = %+v", out.Report)
	}
	if got := out.Report.Found[0].Path; got != filepath.Join(wd, "appmanifest_440.acf") {
		t.Errorf("found path = %q", got)
	}
}
