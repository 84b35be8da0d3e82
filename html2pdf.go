package doc2pdf

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
	"github.com/alnah/go-doc2pdf/internal/process"
)

var _ Renderer = (*RodRenderer)(nil)

// RodRenderer renders HTML with one headless Chrome driven by go-rod.
// Each render runs in its own incognito browser context.
type RodRenderer struct {
	cfg      BrowserConfig
	launcher *launcher.Launcher
	browser  *rod.Browser

	closeOnce sync.Once
	closeErr  error
}

// LaunchRodRenderer starts Chrome and connects to it. Failing here means
// HTML rendering is unavailable for the life of the process.
func LaunchRodRenderer(cfg BrowserConfig) (*RodRenderer, error) {
	l := launcher.New().Headless(true)

	// Use pre-installed browser if specified (Docker/containerized environments)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.NoSandbox {
		l = l.NoSandbox(true)
	}
	l = l.Set("disable-dev-shm-usage").Set("disable-gpu")

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	return &RodRenderer{cfg: cfg, launcher: l, browser: browser}, nil
}

// Render loads htmlContent in a fresh incognito context and prints it to outputPath.
func (r *RodRenderer) Render(ctx context.Context, htmlContent, outputPath string, opts *PDFOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts == nil {
		opts = DefaultPDFOptions()
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	defer cleanup()

	incognito, err := r.browser.Incognito()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = incognito.Close() }()

	page, err := incognito.Page(proto.TargetCreateTarget{URL: fileURL(tmpPath)})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	timeout, err := renderTimeout(ctx, r.cfg.pageTimeout())
	if err != nil {
		return err
	}
	bounded := page.Context(ctx).Timeout(timeout)

	if err := bounded.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := bounded.PDF(buildRodPDFOptions(opts))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return writeOutput(outputPath, reader)
}

// buildRodPDFOptions maps PDFOptions onto the DevTools print request.
func buildRodPDFOptions(opts *PDFOptions) *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		Landscape:         opts.Landscape,
		PrintBackground:   opts.PrintBackground,
		PreferCSSPageSize: opts.PreferCSSPageSize,
		Scale:             floatPtr(opts.Scale),
		PaperWidth:        floatPtr(opts.PaperWidth),
		PaperHeight:       floatPtr(opts.PaperHeight),
		MarginTop:         floatPtr(opts.Margin),
		MarginBottom:      floatPtr(opts.Margin),
		MarginLeft:        floatPtr(opts.Margin),
		MarginRight:       floatPtr(opts.Margin),
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}

// Close disconnects from Chrome and kills it along with its helper processes.
func (r *RodRenderer) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.browser.Close()
		pid := r.launcher.PID()
		r.launcher.Kill()
		process.KillProcessGroup(pid)
	})
	return r.closeErr
}
