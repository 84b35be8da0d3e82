// Package doc2pdf converts uploaded spreadsheets, HTML, and Markdown
// documents to PDF by driving external rendering engines.
//
// # Quick Start
//
// Create an orchestrator, convert a request, stream the result, close when done:
//
//	orch, err := doc2pdf.NewOrchestrator(
//	    doc2pdf.WithRendererPool(pool),
//	    doc2pdf.WithOfficeConverter(office),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer orch.Close(ctx)
//
//	res, err := orch.Convert(ctx, doc2pdf.Request{
//	    Filename: "report.xlsx",
//	    Kind:     doc2pdf.SourceSpreadsheet,
//	    Data:     data,
//	    Options:  doc2pdf.Options{Landscape: true},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer res.Body.Close()
//	io.Copy(w, res.Body)
//
// # Engines
//
// Spreadsheets are converted by LibreOffice (NewSofficeConverter). Page
// orientation and fit-to-page options are applied to the workbook before
// LibreOffice sees it.
//
// HTML and Markdown are rendered by headless Chrome through a RendererPool.
// Two backends are available: go-rod (LaunchRodRenderer) and chromedp
// (LaunchChromedpRenderer). The pool bounds concurrent renders with permits;
// a request that cannot get a permit within the acquire timeout fails with
// ErrBusy.
//
// An engine that failed to start is reported as unavailable: requests that
// need it fail fast with ErrUnavailable, other requests keep working.
//
// # Concurrency
//
// Convert runs on the caller's goroutine. Submit runs it on the work
// scheduler and returns a Pending result. Inputs are deleted shortly after a
// conversion and outputs after a grace period, without blocking the caller.
//
// # Errors
//
// Every error matches one of ErrValidation, ErrUnavailable, ErrBusy,
// ErrStorage, or ErrConversion with errors.Is.
package doc2pdf
