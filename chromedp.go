package doc2pdf

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

var _ Renderer = (*ChromedpRenderer)(nil)

// chromedpStartupTimeout bounds the responsiveness check after launch.
const chromedpStartupTimeout = 30 * time.Second

// ChromedpRenderer renders HTML with one headless Chrome driven by chromedp.
// Each render opens a tab in a new browser context.
type ChromedpRenderer struct {
	cfg         BrowserConfig
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc

	closeOnce sync.Once
}

// LaunchChromedpRenderer starts Chrome and checks that it responds.
func LaunchChromedpRenderer(cfg BrowserConfig) (*ChromedpRenderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
	)
	if cfg.Bin != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run allocates the browser; it must not carry a timeout or
	// the browser would die with it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	testCtx, cancelTest := context.WithTimeout(browserCtx, chromedpStartupTimeout)
	defer cancelTest()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("%w: startup test: %v", ErrBrowserConnect, err)
	}

	return &ChromedpRenderer{
		cfg:         cfg,
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
	}, nil
}

// Render loads htmlContent in a new browser context and prints it to outputPath.
func (r *ChromedpRenderer) Render(ctx context.Context, htmlContent, outputPath string, opts *PDFOptions) error {
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

	timeout, err := renderTimeout(ctx, r.cfg.pageTimeout())
	if err != nil {
		return err
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx, chromedp.WithNewBrowserContext())
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(fileURL(tmpPath)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	var pdf []byte
	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := buildCDPPrint(opts).Do(ctx)
		pdf = data
		return err
	})); err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	return writeOutput(outputPath, bytes.NewReader(pdf))
}

// buildCDPPrint maps PDFOptions onto the DevTools print command.
func buildCDPPrint(opts *PDFOptions) *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithLandscape(opts.Landscape).
		WithPrintBackground(opts.PrintBackground).
		WithPreferCSSPageSize(opts.PreferCSSPageSize).
		WithDisplayHeaderFooter(false).
		WithScale(opts.Scale).
		WithPaperWidth(opts.PaperWidth).
		WithPaperHeight(opts.PaperHeight).
		WithMarginTop(opts.Margin).
		WithMarginBottom(opts.Margin).
		WithMarginLeft(opts.Margin).
		WithMarginRight(opts.Margin)
}

// Close shuts the browser down.
func (r *ChromedpRenderer) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = chromedp.Cancel(r.browserCtx)
		r.cancelTab()
		r.cancelAlloc()
	})
	return err
}
