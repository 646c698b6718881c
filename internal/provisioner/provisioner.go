// Package provisioner guarantees a runnable copy of the generator exists at the
// configured tool path, downloading it when necessary.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"acfgen/internal/archive"
	"acfgen/internal/config"
	"acfgen/internal/fsutil"
	"acfgen/internal/logger"
	"acfgen/internal/retriever"
	"acfgen/internal/state"
)

// ErrProvisioningExhausted is returned when neither source yielded the tool.
var ErrProvisioningExhausted = errors.New("failed to provision tool from all sources")

// Retriever fetches a URL into a local file.
type Retriever interface {
	Retrieve(ctx context.Context, url, dest string, timeout time.Duration) ([]retriever.Attempt, error)
}

// Provisioner installs the generator from a primary archive or a fallback binary.
type Provisioner struct {
	ToolPath        string
	ToolName        string
	PrimaryURL      string
	FallbackURL     string
	Password        string
	DownloadTimeout time.Duration
	// StatePath receives the provenance record; empty disables it.
	StatePath string
	// TempDir is the parent for scratch directories; empty means os.TempDir.
	TempDir string

	Retriever Retriever
	Extract   func(src, destDir, password string) (archive.Result, error)
}

// New wires a Provisioner from configuration.
func New(cfg config.Config, r Retriever) *Provisioner {
	return &Provisioner{
		ToolPath:        cfg.ToolPath,
		ToolName:        cfg.ToolName,
		PrimaryURL:      cfg.PrimaryURL,
		FallbackURL:     cfg.FallbackURL,
		Password:        cfg.ArchivePassword,
		DownloadTimeout: cfg.DownloadTimeout,
		StatePath:       cfg.StatePath(),
		Retriever:       r,
		Extract:         archive.Extract,
	}
}

// Provision returns the tool path, installing the tool first if it is missing.
// An existing file at the tool path is returned without any network activity.
func (p *Provisioner) Provision(ctx context.Context) (string, error) {
	if info, err := os.Stat(p.ToolPath); err == nil && !info.IsDir() {
		logger.Info("[INFO] Tool found at: %s\n", p.ToolPath)
		if ts, ok := state.LoadState(p.StatePath).Tools[p.ToolName]; ok {
			logger.Debug("[DEBUG] Installed from %s at %s (blake3 %s)\n", ts.SourceURL, ts.InstalledAt, ts.BLAKE3)
		}
		return p.ToolPath, nil
	}

	logger.Warn("[WARN] Tool not found at: %s\n", p.ToolPath)
	if err := os.MkdirAll(filepath.Dir(p.ToolPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create tool directory: %w", err)
	}

	var errs []error
	if p.PrimaryURL != "" {
		logger.Info("[INFO] Attempting download from primary source...\n")
		err := p.installFromArchive(ctx)
		if err == nil {
			p.record(p.PrimaryURL)
			logger.Success("[SUCCESS] Tool installed at: %s\n", p.ToolPath)
			return p.ToolPath, nil
		}
		logger.Warn("[WARN] Primary source failed: %v\n", err)
		errs = append(errs, fmt.Errorf("primary: %w", err))
	}

	if p.FallbackURL != "" {
		logger.Info("[INFO] Attempting fallback source...\n")
		err := p.installFromBinary(ctx)
		if err == nil {
			p.record(p.FallbackURL)
			logger.Success("[SUCCESS] Tool installed from fallback at: %s\n", p.ToolPath)
			return p.ToolPath, nil
		}
		logger.Warn("[WARN] Fallback source failed: %v\n", err)
		errs = append(errs, fmt.Errorf("fallback: %w", err))
	}

	return "", fmt.Errorf("%w: %w", ErrProvisioningExhausted, errors.Join(errs...))
}

// installFromArchive downloads the release archive, extracts it and copies the
// executable into place. Scratch files are removed on every path.
func (p *Provisioner) installFromArchive(ctx context.Context) error {
	scratch, err := os.MkdirTemp(p.TempDir, "acfgen-provision-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer fsutil.RemoveQuietly(scratch)

	archivePath := filepath.Join(scratch, archiveName(p.PrimaryURL))
	if _, err := p.Retriever.Retrieve(ctx, p.PrimaryURL, archivePath, p.DownloadTimeout); err != nil {
		return err
	}

	extractDir := filepath.Join(scratch, "extract")
	if _, err := p.Extract(archivePath, extractDir, p.Password); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	exe, found, err := fsutil.FindFirst(extractDir, p.ToolName)
	if err != nil {
		return fmt.Errorf("failed to search extracted files: %w", err)
	}
	if !found {
		return fmt.Errorf("%s not found in archive", p.ToolName)
	}
	logger.Debug("[DEBUG] Found executable in archive: %s\n", exe)

	if err := fsutil.CopyFile(exe, p.ToolPath, 0o755); err != nil {
		fsutil.RemoveQuietly(p.ToolPath)
		return fmt.Errorf("failed to install %s: %w", p.ToolPath, err)
	}
	return fsutil.MakeExecutable(p.ToolPath)
}

// installFromBinary downloads the unarchived executable straight to the tool path.
func (p *Provisioner) installFromBinary(ctx context.Context) error {
	if _, err := p.Retriever.Retrieve(ctx, p.FallbackURL, p.ToolPath, p.DownloadTimeout); err != nil {
		return err
	}
	return fsutil.MakeExecutable(p.ToolPath)
}

// record writes provenance for the freshly installed tool. Failures only warn.
func (p *Provisioner) record(source string) {
	if p.StatePath == "" {
		return
	}
	ts, err := state.Describe(p.ToolPath, source)
	if err != nil {
		logger.Warn("[WARN] Could not describe installed tool: %v\n", err)
		return
	}
	st := state.LoadState(p.StatePath)
	st.Tools[p.ToolName] = ts
	if err := state.SaveState(p.StatePath, st); err != nil {
		logger.Warn("[WARN] Could not save state: %v\n", err)
	}
}

// archiveName derives a local filename, keeping the suffix the extractor dispatches on.
func archiveName(rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
	}
	lower := strings.ToLower(name)
	for _, ext := range []string{".zip", ".7z", ".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz"} {
		if strings.HasSuffix(lower, ext) {
			return name
		}
	}
	return "tool.zip"
}
