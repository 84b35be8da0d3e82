package doc2pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
	"github.com/alnah/go-doc2pdf/internal/logging"
	"github.com/alnah/go-doc2pdf/internal/pipeline"
	"github.com/alnah/go-doc2pdf/internal/process"
)

// OfficeConverter converts an office document on disk to a PDF on disk,
// applying chain to the loaded document first when it is not empty.
type OfficeConverter interface {
	Convert(ctx context.Context, inputPath, outputPath string, chain pipeline.Chain) error
	Close() error
}

var _ OfficeConverter = (*SofficeConverter)(nil)

// officeCandidates are tried in order when no binary is configured.
var officeCandidates = []string{
	"soffice",
	"libreoffice",
	"/usr/lib/libreoffice/program/soffice",
	"/opt/libreoffice/program/soffice",
	"/Applications/LibreOffice.app/Contents/MacOS/soffice",
}

// LookupOffice resolves the LibreOffice binary: the configured one if set,
// otherwise the first candidate found.
func LookupOffice(configured string) (string, error) {
	candidates := officeCandidates
	if configured != "" {
		candidates = []string{configured}
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s found", ErrOfficeUnavailable, strings.Join(candidates, ", "))
}

// OfficeConfig configures the LibreOffice converter.
type OfficeConfig struct {
	Binary      string // soffice path; empty searches PATH.
	ProfileRoot string // parent of per-call user profiles (default: os.TempDir()).
}

// SofficeConverter runs headless LibreOffice once per conversion. Every call
// gets a private user profile so concurrent conversions do not contend for
// the profile lock.
type SofficeConverter struct {
	bin         string
	profileRoot string
	logger      *log.Logger
}

// NewSofficeConverter locates LibreOffice. A missing binary yields
// ErrOfficeUnavailable.
func NewSofficeConverter(cfg OfficeConfig, logger *log.Logger) (*SofficeConverter, error) {
	bin, err := LookupOffice(cfg.Binary)
	if err != nil {
		return nil, err
	}
	root := cfg.ProfileRoot
	if root == "" {
		root = os.TempDir()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &SofficeConverter{bin: bin, profileRoot: root, logger: logger}, nil
}

// Binary returns the resolved LibreOffice path.
func (c *SofficeConverter) Binary() string {
	return c.bin
}

// Convert mutates the workbook when chain is not empty, then exports it to
// PDF. ctx bounds the LibreOffice process; on expiry its process group is killed.
func (c *SofficeConverter) Convert(ctx context.Context, inputPath, outputPath string, chain pipeline.Chain) error {
	if len(chain) > 0 {
		c.mutate(ctx, inputPath, chain)
	}

	profile := filepath.Join(c.profileRoot, "doc2pdf-lo-"+uuid.NewString())
	defer func() { _ = os.RemoveAll(profile) }()

	outDir := filepath.Dir(outputPath)
	args := []string{
		"--headless",
		"--norestore",
		"--nolockcheck",
		"--nodefault",
		"--nologo",
		"-env:UserInstallation=" + fileURL(profile),
		"--convert-to", "pdf:calc_pdf_Export",
		"--outdir", outDir,
		inputPath,
	}

	res, err := process.Run(ctx, outDir, c.bin, args...)
	if err != nil {
		if errors.Is(err, process.ErrTimeout) {
			return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrEngineFailed, err)
	}
	c.logger.Debug().
		Str("input", filepath.Base(inputPath)).
		Dur("duration", res.Duration).
		Str("stdout", strings.TrimSpace(res.Stdout)).
		Msg("libreoffice finished")

	stem, _ := fileutil.SplitExt(filepath.Base(inputPath))
	produced := filepath.Join(outDir, stem+".pdf")
	if produced != outputPath && fileutil.FileExists(produced) {
		if err := os.Rename(produced, outputPath); err != nil {
			return fmt.Errorf("%w: moving output: %v", ErrEngineFailed, err)
		}
	}
	return nil
}

// mutate applies chain to the workbook at path. Failures are logged and the
// original file is converted unchanged.
func (c *SofficeConverter) mutate(ctx context.Context, path string, chain pipeline.Chain) {
	wb, err := openWorkbook(path)
	if err != nil {
		c.logger.Warn().Err(err).Str("file", filepath.Base(path)).Msg("document is not an editable workbook")
		chain.Apply(ctx, &pipeline.Generic{Description: filepath.Base(path)}, c.logger)
		return
	}
	defer func() { _ = wb.Close() }()

	report := chain.Apply(ctx, wb.Document(), c.logger)
	if err := wb.Save(); err != nil {
		c.logger.Warn().Err(err).Str("file", filepath.Base(path)).Msg("saving page setup failed")
		return
	}
	c.logger.Debug().Strs("steps", report.Applied).Int("sheets", len(wb.Document().Sheets)).Msg("page setup updated")
}

// Close is a no-op: LibreOffice runs once per conversion.
func (c *SofficeConverter) Close() error {
	return nil
}
