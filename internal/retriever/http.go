package retriever

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"acfgen/internal/fsutil"
)

const (
	chunkSize        = 1 << 20
	progressBarWidth = 30
)

// HTTP streams the resource with net/http directly into the destination path.
type HTTP struct {
	Client    *http.Client
	UserAgent string
	Progress  io.Writer
}

// NewHTTP returns the built-in strategy. It is always available.
func NewHTTP(opts Options, progress io.Writer) *HTTP {
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = opts.ConnectTimeout

	return &HTTP{
		Client:    &http.Client{Timeout: opts.Timeout, Transport: transport},
		UserAgent: opts.UserAgent,
		Progress:  progress,
	}
}

func (h *HTTP) Name() string    { return "http" }
func (h *HTTP) Available() bool { return true }

// Fetch writes straight to dest; a failed transfer removes whatever was written.
func (h *HTTP) Fetch(ctx context.Context, url, dest string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to GET %s: HTTP %d", url, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fsutil.RemoveQuietly(dest)
		}
	}()

	pw := &progressWriter{out: h.progressOut(), total: resp.ContentLength, last: time.Now()}
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(io.MultiWriter(out, pw), resp.Body, buf); err != nil {
		pw.finish()
		return fmt.Errorf("failed to write response to file: %w", err)
	}
	pw.finish()
	return nil
}

func (h *HTTP) progressOut() io.Writer {
	if h.Progress == nil {
		return io.Discard
	}
	return h.Progress
}

// progressWriter counts bytes and redraws a single status line.
type progressWriter struct {
	out     io.Writer
	total   int64
	written int64
	last    time.Time
	drawn   bool
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if now := time.Now(); now.Sub(p.last) >= 100*time.Millisecond || p.written == p.total {
		p.last = now
		p.draw()
	}
	return len(b), nil
}

func (p *progressWriter) draw() {
	p.drawn = true
	fmt.Fprintf(p.out, "\r  %s", renderProgress(p.written, p.total, progressBarWidth))
}

func (p *progressWriter) finish() {
	if !p.drawn && p.written == 0 {
		return
	}
	p.draw()
	fmt.Fprintln(p.out)
}

// renderProgress formats "[#####.....]  50.0% (1.0 MB / 2.0 MB)". When total is
// unknown only the transferred size is shown.
func renderProgress(done, total int64, width int) string {
	if total <= 0 {
		return fmt.Sprintf("Downloaded %s", humanize.Bytes(uint64(done)))
	}
	if done > total {
		done = total
	}
	pct := float64(done) / float64(total) * 100
	filled := int(int64(width) * done / total)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
	return fmt.Sprintf("[%s] %5.1f%% (%s / %s)", bar, pct, humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
}
