package doc2pdf

import (
	"errors"
	"testing"
)

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	workbook := testWorkbook(t)

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{
			name: "xlsx workbook",
			req:  Request{Filename: "q1.xlsx", Kind: SourceSpreadsheet, Data: workbook},
		},
		{
			name: "extension is case insensitive",
			req:  Request{Filename: "Q1.XLSX", Kind: SourceSpreadsheet, Data: workbook},
		},
		{
			name: "legacy xls as ole container",
			req:  Request{Filename: "old.xls", Kind: SourceSpreadsheet, Data: oleHeader()},
		},
		{
			name: "html document",
			req:  Request{Filename: "page.htm", Kind: SourceHTML, Data: []byte(testHTML)},
		},
		{
			name: "markdown",
			req:  Request{Filename: "README.markdown", Kind: SourceMarkdown, Data: []byte("# Title\n\ntext")},
		},
		{
			name: "explicit pdf output",
			req:  Request{Filename: "a.html", Kind: SourceHTML, Output: OutputPDF, Data: []byte(testHTML)},
		},
		{
			name:    "blank filename",
			req:     Request{Filename: "   ", Kind: SourceHTML, Data: []byte(testHTML)},
			wantErr: ErrMissingFilename,
		},
		{
			name:    "html file submitted as markdown",
			req:     Request{Filename: "page.html", Kind: SourceMarkdown, Data: []byte(testHTML)},
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "binary posing as html",
			req:     Request{Filename: "page.html", Kind: SourceHTML, Data: workbook},
			wantErr: ErrContentMismatch,
		},
		{
			name:    "png posing as workbook",
			req:     Request{Filename: "chart.xlsx", Kind: SourceSpreadsheet, Data: pngHeader()},
			wantErr: ErrContentMismatch,
		},
		{
			name:    "empty kind",
			req:     Request{Filename: "a.html", Data: []byte(testHTML)},
			wantErr: ErrUnsupportedKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateRequest(tt.req)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("validateRequest() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateRequest() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("validateRequest() error = %v, want ErrValidation class", err)
			}
		})
	}
}

func TestParseSourceKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    SourceKind
		wantErr bool
	}{
		{in: "spreadsheet", want: SourceSpreadsheet},
		{in: " HTML ", want: SourceHTML},
		{in: "Markdown", want: SourceMarkdown},
		{in: "docx", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSourceKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedKind) {
					t.Errorf("ParseSourceKind(%q) error = %v, want ErrUnsupportedKind", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseSourceKind(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestSourceKind_DownloadName(t *testing.T) {
	t.Parallel()

	if got := SourceSpreadsheet.downloadName(); got != "converted.pdf" {
		t.Errorf("spreadsheet download name = %q", got)
	}
	for _, k := range []SourceKind{SourceHTML, SourceMarkdown} {
		if got := k.downloadName(); got != "converted-from-html.pdf" {
			t.Errorf("%s download name = %q", k, got)
		}
	}
}

// oleHeader is the compound file signature used by legacy Office formats.
func oleHeader() []byte {
	data := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	return append(data, make([]byte, 512)...)
}

func pngHeader() []byte {
	data := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return append(data, make([]byte, 32)...)
}
