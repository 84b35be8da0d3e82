package doc2pdf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

// Container formats accepted for spreadsheets. OOXML workbooks are ZIP
// archives and legacy workbooks are OLE compound files; the sniffer reports
// the specific type when it can and the container otherwise.
var spreadsheetContainers = []string{"application/zip", "application/x-ole-storage"}

// textRoot is the ancestor of every text type the sniffer knows.
const textRoot = "text/plain"

// validateRequest rejects malformed requests before any filesystem access.
func validateRequest(req Request) error {
	if req.Output != "" && req.Output != OutputPDF {
		return fmt.Errorf("%w: %q", ErrUnsupportedOutput, req.Output)
	}
	exts := req.Kind.Extensions()
	if exts == nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, req.Kind)
	}
	if strings.TrimSpace(req.Filename) == "" {
		return ErrMissingFilename
	}
	if len(req.Data) == 0 {
		return ErrEmptyPayload
	}
	if !fileutil.HasExtension(req.Filename, exts...) {
		return fmt.Errorf("%w: %s (expected %s)", ErrUnsupportedType, filepath.Base(req.Filename), strings.Join(exts, ", "))
	}
	return sniffContent(req.Kind, req.Data)
}

// sniffContent checks that the payload's detected type fits the source kind.
func sniffContent(kind SourceKind, data []byte) error {
	detected := mimetype.Detect(data)

	var want []string
	switch kind {
	case SourceSpreadsheet:
		want = spreadsheetContainers
	default:
		want = []string{textRoot}
	}

	for mt := detected; mt != nil; mt = mt.Parent() {
		for _, w := range want {
			if mt.Is(w) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: detected %s for %s", ErrContentMismatch, detected.String(), kind)
}
