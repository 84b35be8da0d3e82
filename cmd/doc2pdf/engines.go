package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/phuslu/log"

	doc2pdf "github.com/alnah/go-doc2pdf"
	"github.com/alnah/go-doc2pdf/internal/config"
	"github.com/alnah/go-doc2pdf/internal/hints"
)

// ErrNoEngines is returned in strict mode when an engine failed to start.
var ErrNoEngines = errors.New("conversion engine unavailable")

// rendererLauncher starts a browser-backed renderer.
type rendererLauncher func(doc2pdf.BrowserConfig) (doc2pdf.Renderer, error)

// rendererLaunchers maps renderer.engine values to launchers.
var rendererLaunchers = map[string]rendererLauncher{
	"rod": func(c doc2pdf.BrowserConfig) (doc2pdf.Renderer, error) {
		return doc2pdf.LaunchRodRenderer(c)
	},
	"chromedp": func(c doc2pdf.BrowserConfig) (doc2pdf.Renderer, error) {
		return doc2pdf.LaunchChromedpRenderer(c)
	},
}

// newOffice builds the spreadsheet engine. Swapped in tests.
var newOffice = func(cfg doc2pdf.OfficeConfig, logger *log.Logger) (doc2pdf.OfficeConverter, error) {
	return doc2pdf.NewSofficeConverter(cfg, logger)
}

// engines are the conversion backends started for one process.
type engines struct {
	pool   *doc2pdf.RendererPool
	office doc2pdf.OfficeConverter // nil when LibreOffice is missing
}

// startEngines launches the renderer and locates LibreOffice. A failing
// engine leaves its conversions answering 503 unless strict is set.
func startEngines(cfg *config.Config, strict bool, logger *log.Logger) (*engines, error) {
	e := &engines{}

	rc := cfg.Renderer
	launch, ok := rendererLaunchers[rc.Engine]
	if !ok {
		return nil, fmt.Errorf("%w: unknown renderer engine %q", config.ErrInvalidConfig, rc.Engine)
	}
	r, err := launch(doc2pdf.BrowserConfig{
		Bin:         rc.BrowserBin,
		NoSandbox:   rc.NoSandbox,
		PageTimeout: rc.PageTimeout,
	})
	if err != nil {
		if strict {
			return nil, fmt.Errorf("%w: %w%s", ErrNoEngines, err, hints.ForBrowserConnect(rc.NoSandbox, rc.BrowserBin))
		}
		logger.Warn().Err(err).Str("engine", rc.Engine).
			Msg("HTML conversion disabled" + hints.ForBrowserConnect(rc.NoSandbox, rc.BrowserBin))
		e.pool = doc2pdf.NewUnavailableRendererPool(err)
	} else {
		size := doc2pdf.ResolvePoolSize(rc.PoolSize)
		e.pool = doc2pdf.NewRendererPool(r, size, rc.AcquireTimeout)
		logger.Info().Str("engine", rc.Engine).Int("permits", size).Msg("HTML renderer started")
	}

	office, err := newOffice(doc2pdf.OfficeConfig{Binary: cfg.Office.Binary}, logger)
	switch {
	case err == nil:
		e.office = office
		logger.Info().Msg("LibreOffice found")
	case strict:
		e.close()
		return nil, fmt.Errorf("%w: %w%s", ErrNoEngines, err, hints.ForOfficeMissing())
	default:
		logger.Warn().Err(err).Msg("spreadsheet conversion disabled" + hints.ForOfficeMissing())
	}
	return e, nil
}

// close releases engines that were started but never handed to an
// orchestrator.
func (e *engines) close() {
	if e.pool != nil {
		_ = e.pool.Close(context.Background())
	}
	if e.office != nil {
		_ = e.office.Close()
	}
}
