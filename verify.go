package doc2pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// countPages reads the output back and returns its page count. A file that
// is not a PDF, or has no pages, is an engine failure.
func countPages(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidOutput)
	}
	return n, nil
}
