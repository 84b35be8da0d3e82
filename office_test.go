//go:build !windows

package doc2pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/alnah/go-doc2pdf/internal/logging"
	"github.com/alnah/go-doc2pdf/internal/pipeline"
)

// fakeSoffice writes a shell script that mimics LibreOffice's
// --convert-to/--outdir contract by copying a prepared PDF. body runs
// before the copy and may exit or sleep.
func fakeSoffice(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()

	pdf := filepath.Join(dir, "fixture.pdf")
	if err := writeTestPDF(pdf, 1, false); err != nil {
		t.Fatalf("writeTestPDF: %v", err)
	}

	script := fmt.Sprintf(`#!/bin/sh
%s
outdir=""
while [ $# -gt 1 ]; do
  if [ "$1" = "--outdir" ]; then outdir="$2"; shift; fi
  shift
done
name=$(basename "$1")
cp %q "$outdir/${name%%.*}.pdf"
`, body, pdf)

	bin := filepath.Join(dir, "soffice")
	if err := os.WriteFile(bin, []byte(script), 0o700); err != nil { // #nosec G306 -- test executable
		t.Fatal(err)
	}
	return bin
}

func TestLookupOffice(t *testing.T) {
	t.Parallel()

	bin := fakeSoffice(t, "")
	got, err := LookupOffice(bin)
	if err != nil || got != bin {
		t.Errorf("LookupOffice(%q) = %q, %v", bin, got, err)
	}

	_, err = LookupOffice(filepath.Join(t.TempDir(), "no-such-soffice"))
	if !errors.Is(err, ErrOfficeUnavailable) {
		t.Errorf("LookupOffice(missing) error = %v, want ErrOfficeUnavailable", err)
	}
}

func TestNewSofficeConverter_Missing(t *testing.T) {
	t.Parallel()

	_, err := NewSofficeConverter(OfficeConfig{Binary: "/nonexistent/soffice"}, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("NewSofficeConverter() error = %v, want ErrUnavailable class", err)
	}
}

func newTestSoffice(t *testing.T, body string) *SofficeConverter {
	t.Helper()
	c, err := NewSofficeConverter(OfficeConfig{
		Binary:      fakeSoffice(t, body),
		ProfileRoot: t.TempDir(),
	}, logging.Nop())
	if err != nil {
		t.Fatalf("NewSofficeConverter() error = %v", err)
	}
	return c
}

func writeInputWorkbook(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, testWorkbook(t), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSofficeConverter_Convert(t *testing.T) {
	t.Parallel()

	c := newTestSoffice(t, "")
	dir := t.TempDir()
	in := writeInputWorkbook(t, dir, "sales-20260101-120000.xlsx")
	out := filepath.Join(dir, "sales-20260101-120000.pdf")

	if err := c.Convert(context.Background(), in, out, nil); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if n, err := countPages(out); err != nil || n != 1 {
		t.Errorf("countPages(out) = %d, %v", n, err)
	}
	if entries, _ := os.ReadDir(c.profileRoot); len(entries) != 0 {
		t.Errorf("profile directory left behind: %d entries", len(entries))
	}
}

func TestSofficeConverter_RenamesOutput(t *testing.T) {
	t.Parallel()

	c := newTestSoffice(t, "")
	dir := t.TempDir()
	in := writeInputWorkbook(t, dir, "input.xlsx")
	out := filepath.Join(dir, "result.pdf")

	if err := c.Convert(context.Background(), in, out, nil); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not at requested path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "input.pdf")); !os.IsNotExist(err) {
		t.Errorf("engine-named output still present: %v", err)
	}
}

func TestSofficeConverter_MutatesBeforeExport(t *testing.T) {
	t.Parallel()

	c := newTestSoffice(t, "")
	dir := t.TempDir()
	in := writeInputWorkbook(t, dir, "wide.xlsx")
	out := filepath.Join(dir, "wide.pdf")

	chain := pipeline.BuildChain(pipeline.Options{Landscape: true})
	if err := c.Convert(context.Background(), in, out, chain); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	f, err := excelize.OpenFile(in)
	if err != nil {
		t.Fatalf("reopening input: %v", err)
	}
	defer func() { _ = f.Close() }()
	layout, err := f.GetPageLayout("Sheet1")
	if err != nil {
		t.Fatalf("GetPageLayout: %v", err)
	}
	if layout.Orientation == nil || *layout.Orientation != orientationLandscape {
		t.Errorf("orientation = %v, want landscape", layout.Orientation)
	}
}

func TestSofficeConverter_NonWorkbookStillConverts(t *testing.T) {
	t.Parallel()

	c := newTestSoffice(t, "")
	dir := t.TempDir()
	in := filepath.Join(dir, "legacy.xls")
	if err := os.WriteFile(in, oleHeader(), 0o600); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "legacy.pdf")

	chain := pipeline.BuildChain(pipeline.Options{Landscape: true, FitToPage: true})
	if err := c.Convert(context.Background(), in, out, chain); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestSofficeConverter_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		timeout time.Duration
		wantErr error
	}{
		{
			name:    "non-zero exit",
			body:    "echo 'source file could not be loaded' >&2; exit 1",
			timeout: 5 * time.Second,
			wantErr: ErrEngineFailed,
		},
		{
			name:    "hangs past deadline",
			body:    "sleep 10",
			timeout: 100 * time.Millisecond,
			wantErr: ErrEngineTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestSoffice(t, tt.body)
			dir := t.TempDir()
			in := writeInputWorkbook(t, dir, "in.xlsx")

			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			start := time.Now()
			err := c.Convert(ctx, in, filepath.Join(dir, "in.pdf"), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Convert() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrConversion) {
				t.Errorf("Convert() error = %v, want ErrConversion class", err)
			}
			if elapsed := time.Since(start); elapsed > 3*time.Second {
				t.Errorf("Convert() took %v", elapsed)
			}
		})
	}
}
