package doc2pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Renderer renders HTML to a PDF file using a long-lived browser.
// Implementations open an isolated browsing context for every call so
// concurrent renders never share state.
type Renderer interface {
	Render(ctx context.Context, htmlContent, outputPath string, opts *PDFOptions) error
	Close() error
}

// DefaultPageTimeout bounds navigation and content loading for one render.
const DefaultPageTimeout = 15 * time.Second

// PDF page defaults: A4 with 5mm margins.
const (
	a4WidthInches   = 8.27
	a4HeightInches  = 11.69
	defaultMarginIn = 5.0 / 25.4
	defaultScale    = 0.9
)

// PDFOptions controls the browser's print-to-PDF call.
type PDFOptions struct {
	PaperWidth        float64 // inches
	PaperHeight       float64 // inches
	Margin            float64 // inches, all sides
	Scale             float64
	Landscape         bool
	PrintBackground   bool
	PreferCSSPageSize bool
}

// DefaultPDFOptions returns A4, 5mm margins, background graphics, CSS page
// size preferred, no header or footer, 90% scale.
func DefaultPDFOptions() *PDFOptions {
	return &PDFOptions{
		PaperWidth:        a4WidthInches,
		PaperHeight:       a4HeightInches,
		Margin:            defaultMarginIn,
		Scale:             defaultScale,
		PrintBackground:   true,
		PreferCSSPageSize: true,
	}
}

// BrowserConfig configures a headless Chrome renderer.
type BrowserConfig struct {
	Bin         string        // Chrome binary; empty lets the backend locate one.
	NoSandbox   bool          // Required in most containers.
	PageTimeout time.Duration // Per-render load bound (default: DefaultPageTimeout).
}

func (c BrowserConfig) pageTimeout() time.Duration {
	if c.PageTimeout > 0 {
		return c.PageTimeout
	}
	return DefaultPageTimeout
}

// renderTimeout shortens timeout to the context deadline when that is sooner.
func renderTimeout(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if remaining < timeout {
			return remaining, nil
		}
	}
	return timeout, nil
}

// fileURL turns an absolute path into a file:// URL.
func fileURL(path string) string {
	return "file://" + filepath.ToSlash(path)
}

// writeOutput copies r to path, removing a partial file on failure.
func writeOutput(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: creating output: %v", ErrPDFGeneration, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("%w: writing output: %v", ErrPDFGeneration, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: closing output: %v", ErrPDFGeneration, err)
	}
	return nil
}
