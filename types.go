package doc2pdf

import (
	"fmt"
	"io"
	"strings"
)

// SourceKind identifies what an uploaded document contains.
type SourceKind string

// Supported source kinds.
const (
	SourceSpreadsheet SourceKind = "spreadsheet"
	SourceHTML        SourceKind = "html"
	SourceMarkdown    SourceKind = "markdown"
)

// OutputKind identifies the output format. Only PDF is produced.
type OutputKind string

// OutputPDF is the only output kind.
const OutputPDF OutputKind = "pdf"

// Download names suggested to clients.
const (
	DownloadName         = "converted.pdf"
	DownloadNameFromHTML = "converted-from-html.pdf"
)

// PDFContentType is the media type of every result.
const PDFContentType = "application/pdf"

var (
	spreadsheetExtensions = []string{".xlsx", ".xls"}
	htmlExtensions        = []string{".html", ".htm"}
	markdownExtensions    = []string{".md", ".markdown"}
)

// Extensions returns the accepted file extensions for the kind.
func (k SourceKind) Extensions() []string {
	switch k {
	case SourceSpreadsheet:
		return spreadsheetExtensions
	case SourceHTML:
		return htmlExtensions
	case SourceMarkdown:
		return markdownExtensions
	default:
		return nil
	}
}

// defaultExtension is used when an upload has no extension.
func (k SourceKind) defaultExtension() string {
	if exts := k.Extensions(); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// downloadName is the suggested client-side name of the result.
func (k SourceKind) downloadName() string {
	if k == SourceSpreadsheet {
		return DownloadName
	}
	return DownloadNameFromHTML
}

// ParseSourceKind parses a kind name, ignoring case.
func ParseSourceKind(s string) (SourceKind, error) {
	switch k := SourceKind(strings.ToLower(strings.TrimSpace(s))); k {
	case SourceSpreadsheet, SourceHTML, SourceMarkdown:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// Options are the per-request conversion options.
type Options struct {
	Landscape bool // Rotate pages to landscape.
	FitToPage bool // Scale each sheet onto one page (spreadsheets only).
}

// Request is one conversion request. It is treated as immutable.
type Request struct {
	ID       string // Correlates logs; empty generates one.
	Filename string
	Kind     SourceKind
	Output   OutputKind // Zero value means OutputPDF.
	Data     []byte
	Options  Options
}

// Result is a finished conversion. Body streams the output artifact and must
// be closed by the caller.
type Result struct {
	RequestID   string
	Filename    string
	ContentType string
	Size        int64
	Pages       int
	Body        io.ReadCloser
}
