// Package retriever downloads a URL to a local path, trying several transports in
// priority order and stopping at the first one that leaves a non-empty file behind.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"acfgen/internal/fsutil"
	"acfgen/internal/logger"
)

var (
	// ErrAllStrategiesFailed is returned when no strategy produced the file.
	ErrAllStrategiesFailed = errors.New("all download strategies failed")
	// ErrUnavailable marks a strategy whose backing tool is not installed.
	ErrUnavailable = errors.New("strategy unavailable")
	// ErrEmptyDownload marks a transfer that reported success but wrote nothing.
	ErrEmptyDownload = errors.New("downloaded file is empty")
)

// Strategy is one way of fetching a URL.
type Strategy interface {
	Name() string
	// Available reports whether the strategy can run on this host.
	Available() bool
	// Fetch writes the resource at url to dest.
	Fetch(ctx context.Context, url, dest string) error
}

// Attempt records the outcome of one strategy for one Retrieve call.
type Attempt struct {
	Strategy string
	URL      string
	Dest     string
	Err      error
}

// Options configures the default strategy chain.
type Options struct {
	UserAgent      string
	ConnectTimeout time.Duration
	// Timeout bounds a single transfer attempt.
	Timeout time.Duration
	// Progress receives the built-in client's progress line. Nil means stdout.
	Progress io.Writer
}

// Retriever runs its strategies in order until one succeeds.
type Retriever struct {
	Strategies []Strategy
}

// New returns a Retriever using curl, then wget, then the built-in HTTP client.
func New(opts Options) *Retriever {
	progress := opts.Progress
	if progress == nil {
		progress = os.Stdout
	}
	return &Retriever{Strategies: []Strategy{
		NewCurl(opts),
		NewWget(opts),
		NewHTTP(opts, progress),
	}}
}

// retrier is implemented by strategies that make several transfer attempts.
type retrier interface {
	MaxAttempts() int
}

// budget is the time one strategy may spend: timeout for each attempt it makes.
func budget(s Strategy, timeout time.Duration) time.Duration {
	if r, ok := s.(retrier); ok && r.MaxAttempts() > 1 {
		return time.Duration(r.MaxAttempts()) * timeout
	}
	return timeout
}

// Retrieve fetches url into dest. When timeout is positive it bounds every
// transfer attempt, so a stalled strategy cannot starve the ones after it.
// It succeeds only if a non-empty file exists at dest afterwards.
func (r *Retriever) Retrieve(ctx context.Context, url, dest string, timeout time.Duration) ([]Attempt, error) {
	logger.Info("[INFO] Downloading %s\n", url)

	attempts := make([]Attempt, 0, len(r.Strategies))
	errs := make([]error, 0, len(r.Strategies))
	for _, s := range r.Strategies {
		a := Attempt{Strategy: s.Name(), URL: url, Dest: dest}

		switch {
		case !s.Available():
			a.Err = ErrUnavailable
			logger.Debug("[DEBUG] %s not available, skipping\n", s.Name())
		default:
			logger.Debug("[DEBUG] Trying %s for %s\n", s.Name(), url)
			a.Err = fetchWithin(ctx, s, url, dest, timeout)
			if a.Err == nil && !fsutil.NonEmptyFile(dest) {
				a.Err = ErrEmptyDownload
				fsutil.RemoveQuietly(dest)
			}
			if a.Err != nil {
				logger.Warn("[WARN] %s download failed: %v\n", s.Name(), a.Err)
			}
		}

		attempts = append(attempts, a)
		if a.Err == nil {
			logger.Success("[SUCCESS] Downloaded %s with %s\n", dest, s.Name())
			return attempts, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), a.Err))

		if ctx.Err() != nil {
			break
		}
	}

	return attempts, fmt.Errorf("%w for %s: %w", ErrAllStrategiesFailed, url, errors.Join(errs...))
}

func fetchWithin(ctx context.Context, s Strategy, url, dest string, timeout time.Duration) error {
	if timeout <= 0 {
		return s.Fetch(ctx, url, dest)
	}
	sctx, cancel := context.WithTimeout(ctx, budget(s, timeout))
	defer cancel()
	return s.Fetch(sctx, url, dest)
}

// fetchAtomically runs fetch against a side file and renames it over dest only
// when fetch succeeded and produced data. The side file never survives a failure.
func fetchAtomically(dest string, fetch func(tmp string) error) error {
	tmp := dest + ".part"
	fsutil.RemoveQuietly(tmp)

	if err := fetch(tmp); err != nil {
		fsutil.RemoveQuietly(tmp)
		return err
	}
	if !fsutil.NonEmptyFile(tmp) {
		fsutil.RemoveQuietly(tmp)
		return ErrEmptyDownload
	}
	if err := os.Rename(tmp, dest); err != nil {
		fsutil.RemoveQuietly(tmp)
		return fmt.Errorf("failed to move %s into place: %w", tmp, err)
	}
	return nil
}
