package doc2pdf

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by Convert matches exactly one of
// these with errors.Is.
var (
	ErrValidation  = errors.New("invalid conversion request")
	ErrUnavailable = errors.New("conversion engine unavailable")
	ErrBusy        = errors.New("server is busy, try again later")
	ErrStorage     = errors.New("artifact storage failed")
	ErrConversion  = errors.New("conversion failed")
)

// Validation errors.
var (
	ErrEmptyPayload      = fmt.Errorf("%w: file is empty", ErrValidation)
	ErrMissingFilename   = fmt.Errorf("%w: filename is required", ErrValidation)
	ErrUnsupportedType   = fmt.Errorf("%w: unsupported file type", ErrValidation)
	ErrContentMismatch   = fmt.Errorf("%w: content does not match file type", ErrValidation)
	ErrUnsupportedKind   = fmt.Errorf("%w: unsupported source kind", ErrValidation)
	ErrUnsupportedOutput = fmt.Errorf("%w: unsupported output format", ErrValidation)
)

// Engine availability errors.
var (
	ErrRendererUnavailable = fmt.Errorf("%w: HTML conversion not available", ErrUnavailable)
	ErrOfficeUnavailable   = fmt.Errorf("%w: Excel conversion requires LibreOffice", ErrUnavailable)
	ErrShuttingDown        = fmt.Errorf("%w: service is shutting down", ErrUnavailable)
)

// Engine and output errors.
var (
	ErrBrowserConnect = fmt.Errorf("%w: failed to connect to browser", ErrUnavailable)
	ErrPageCreate     = fmt.Errorf("%w: failed to create browser page", ErrConversion)
	ErrPageLoad       = fmt.Errorf("%w: failed to load page", ErrConversion)
	ErrPDFGeneration  = fmt.Errorf("%w: PDF generation failed", ErrConversion)
	ErrHTMLConversion = fmt.Errorf("%w: markdown conversion failed", ErrConversion)
	ErrEngineFailed   = fmt.Errorf("%w: office engine failed", ErrConversion)
	ErrEngineTimeout  = fmt.Errorf("%w: engine timed out", ErrConversion)
	ErrOutputMissing  = fmt.Errorf("%w: engine produced no output", ErrConversion)
	ErrInvalidOutput  = fmt.Errorf("%w: output is not a valid PDF", ErrConversion)
	ErrInternal       = fmt.Errorf("%w: internal error", ErrConversion)
)
