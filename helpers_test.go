package doc2pdf

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/alnah/go-doc2pdf/internal/logging"
	"github.com/alnah/go-doc2pdf/internal/pipeline"
)

// writeTestPDF writes a real PDF with the given number of pages.
func writeTestPDF(path string, pages int, landscape bool) error {
	orientation := "P"
	if landscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, "doc2pdf test page")
	}
	return pdf.OutputFileAndClose(path)
}

// mockRenderer records render calls and writes a one-page PDF.
type mockRenderer struct {
	mu        sync.Mutex
	calls     []mockRenderCall
	delay     time.Duration
	err       error
	noOutput  bool
	garbage   bool
	active    atomic.Int32
	maxActive atomic.Int32
	closed    atomic.Bool
}

type mockRenderCall struct {
	html string
	opts PDFOptions
}

func (m *mockRenderer) Render(ctx context.Context, htmlContent, outputPath string, opts *PDFOptions) error {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		cur := m.maxActive.Load()
		if n <= cur || m.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, mockRenderCall{html: htmlContent, opts: *opts})
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	switch {
	case m.err != nil:
		return m.err
	case m.noOutput:
		return nil
	case m.garbage:
		return os.WriteFile(outputPath, []byte("not a pdf"), 0o600)
	}
	return writeTestPDF(outputPath, 1, opts.Landscape)
}

func (m *mockRenderer) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *mockRenderer) Calls() []mockRenderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockRenderCall(nil), m.calls...)
}

// mockOffice stands in for LibreOffice. It applies the chain to a portrait
// A4 sheet so tests can observe the mutation, then writes a PDF.
type mockOffice struct {
	mu     sync.Mutex
	sheets []*pipeline.Spreadsheet
	inputs []string
	delay  time.Duration
	err    error
	closed atomic.Bool
}

func (m *mockOffice) Convert(ctx context.Context, inputPath, outputPath string, chain pipeline.Chain) error {
	if _, err := os.Stat(inputPath); err != nil {
		return errors.New("input not persisted")
	}
	doc := &pipeline.Spreadsheet{Sheets: []*pipeline.Sheet{{
		Name: "Sheet1",
		Page: &pipeline.PageStyle{Width: 21000, Height: 29700},
	}}}
	chain.Apply(ctx, doc, logging.Nop())

	m.mu.Lock()
	m.sheets = append(m.sheets, doc)
	m.inputs = append(m.inputs, inputPath)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.err != nil {
		return m.err
	}
	page := doc.Sheets[0].Page
	return writeTestPDF(outputPath, 2, page.Width > page.Height)
}

func (m *mockOffice) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *mockOffice) Sheets() []*pipeline.Spreadsheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*pipeline.Spreadsheet(nil), m.sheets...)
}

// testWorkbook returns an OOXML workbook with one populated sheet.
func testWorkbook(t testing.TB) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetCellValue("Sheet1", "A1", "quarterly report"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}
