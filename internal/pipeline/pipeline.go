// Package pipeline runs the stages in order: normalize ids, prepare the
// compatibility layer, provision the tool, invoke it, then verify its output.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"acfgen/internal/appid"
	"acfgen/internal/compat"
	"acfgen/internal/config"
	"acfgen/internal/invoker"
	"acfgen/internal/logger"
	"acfgen/internal/provisioner"
	"acfgen/internal/retriever"
	"acfgen/internal/verifier"
)

// ErrNoIdentifiers is returned when the input held no app ids.
var ErrNoIdentifiers = errors.New("no valid App IDs provided")

// Layer prepares the compatibility layer ahead of provisioning.
type Layer interface {
	Ensure(ctx context.Context) (string, error)
}

// Provisioner guarantees the generator is installed.
type Provisioner interface {
	Provision(ctx context.Context) (string, error)
}

// Invoker runs the generator.
type Invoker interface {
	Invoke(ctx context.Context, toolPath string, ids []string, debug bool, workingDir string) (invoker.Result, error)
}

// Request is the user input for one run.
type Request struct {
	RawIDs     string
	WorkingDir string
	Debug      bool
}

// Outcome collects what each stage produced.
type Outcome struct {
	IDs        []string
	WorkingDir string
	ToolPath   string
	Invocation invoker.Result
	// InvokeErr is the invocation failure, if any. It does not fail the run.
	InvokeErr error
	Report    verifier.Report
}

// Pipeline holds the stage implementations. Any of them may be replaced.
type Pipeline struct {
	Layer       Layer
	Provisioner Provisioner
	Invoker     Invoker
	Verify      func(workingDir string, ids []string) verifier.Report
}

// New wires the production stages from cfg. The same compatibility manager serves
// the eager check and the invoker's lazy one.
func New(cfg config.Config) *Pipeline {
	layer := compat.New(cfg.Compat)
	return &Pipeline{
		Layer:       layer,
		Provisioner: provisioner.New(cfg, NewRetriever(cfg)),
		Invoker:     invoker.New(cfg.InvokeTimeout, layer),
		Verify:      verifier.Verify,
	}
}

// NewRetriever returns the download chain configured by cfg.
func NewRetriever(cfg config.Config) *retriever.Retriever {
	return retriever.New(retriever.Options{
		UserAgent:      cfg.UserAgent,
		ConnectTimeout: cfg.ConnectTimeout,
		Timeout:        cfg.DownloadTimeout,
	})
}

// Run executes one batch. It returns an error only for conditions that must fail
// the process: no ids, an unusable working directory, or a tool that could not
// be provisioned. Invocation failures are recorded in the Outcome and
// verification still runs, since earlier runs may have left output behind.
func (p *Pipeline) Run(ctx context.Context, req Request) (Outcome, error) {
	var out Outcome

	out.IDs = appid.Normalize(req.RawIDs)
	if len(out.IDs) == 0 {
		logger.Error("[ERROR] No valid App IDs provided\n")
		return out, ErrNoIdentifiers
	}
	logger.Debug("[DEBUG] Normalized App IDs: %v\n", out.IDs)

	wd, err := config.ResolveWorkingDir(req.WorkingDir)
	if err != nil {
		logger.Error("[ERROR] Invalid working directory %q: %v\n", req.WorkingDir, err)
		return out, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	out.WorkingDir = wd

	if p.Layer != nil {
		if _, err := p.Layer.Ensure(ctx); err != nil {
			logger.Warn("[WARN] %v; will check again before running the tool\n", err)
		}
	}

	out.ToolPath, err = p.Provisioner.Provision(ctx)
	if err != nil {
		logger.Error("[ERROR] Failed to obtain the generator: %v\n", err)
		return out, fmt.Errorf("provisioning failed: %w", err)
	}

	out.Invocation, out.InvokeErr = p.Invoker.Invoke(ctx, out.ToolPath, out.IDs, req.Debug, wd)

	logger.Info("[INFO] Checking for generated ACF files in %s\n", wd)
	out.Report = p.Verify(wd, out.IDs)
	out.Report.Log()

	return out, nil
}
