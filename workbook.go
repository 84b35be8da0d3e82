package doc2pdf

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/alnah/go-doc2pdf/internal/pipeline"
)

// OOXML paper size codes used by the page style mapping.
const (
	paperLetter  = 1
	paperTabloid = 3
	paperLegal   = 5
	paperA3      = 8
	paperA4      = 9
	paperA5      = 11

	orientationLandscape = "landscape"
	orientationPortrait  = "portrait"
)

// paperDims maps paper codes to portrait width and height in 1/100 mm.
var paperDims = map[int][2]int{
	paperLetter:  {21590, 27940},
	paperTabloid: {27940, 43180},
	paperLegal:   {21590, 35560},
	paperA3:      {29700, 42000},
	paperA4:      {21000, 29700},
	paperA5:      {14800, 21000},
}

// workbook is an open spreadsheet exposed to the mutation pipeline.
type workbook struct {
	file *excelize.File
	doc  *pipeline.Spreadsheet
}

// openWorkbook loads the page setup of every sheet in an OOXML workbook.
// Sheets whose page setup cannot be read get a nil page style.
func openWorkbook(path string) (*workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}

	doc := &pipeline.Spreadsheet{}
	for _, name := range f.GetSheetList() {
		sheet := &pipeline.Sheet{Name: name}
		if layout, err := f.GetPageLayout(name); err == nil {
			sheet.Page = pageStyleFromLayout(layout, fitsToPage(f, name))
		}
		doc.Sheets = append(doc.Sheets, sheet)
	}
	return &workbook{file: f, doc: doc}, nil
}

// Document returns the handle the pipeline mutates.
func (w *workbook) Document() *pipeline.Spreadsheet {
	return w.doc
}

// Save writes the page styles back into the workbook file.
func (w *workbook) Save() error {
	for _, sheet := range w.doc.Sheets {
		if sheet.Page == nil {
			continue
		}
		if err := applyPageStyle(w.file, sheet.Name, sheet.Page); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
	}
	if err := w.file.Save(); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

// Close releases the workbook.
func (w *workbook) Close() error {
	return w.file.Close()
}

// fitsToPage reports whether the sheet's "fit to page" print scaling is on.
func fitsToPage(f *excelize.File, sheet string) bool {
	props, err := f.GetSheetProps(sheet)
	return err == nil && props.FitToPage != nil && *props.FitToPage
}

// pageStyleFromLayout maps a sheet's page layout to a page style. Fit-to-page
// scaling only counts when fit is also set in the sheet properties, since the
// width and height counts are ignored otherwise.
func pageStyleFromLayout(layout excelize.PageLayoutOptions, fit bool) *pipeline.PageStyle {
	size := paperA4
	if layout.Size != nil {
		if _, ok := paperDims[*layout.Size]; ok {
			size = *layout.Size
		}
	}
	dims := paperDims[size]
	p := &pipeline.PageStyle{Width: dims[0], Height: dims[1]}

	if layout.Orientation != nil && *layout.Orientation == orientationLandscape {
		p.Landscape = true
		p.Width, p.Height = p.Height, p.Width
	}
	if fit {
		p.ScaleToPages = 1
		if layout.FitToWidth != nil && *layout.FitToWidth > 1 {
			p.ScaleToPages = *layout.FitToWidth
		}
	}
	return p
}

func applyPageStyle(f *excelize.File, sheet string, p *pipeline.PageStyle) error {
	orientation := orientationPortrait
	if p.Landscape {
		orientation = orientationLandscape
	}
	opts := &excelize.PageLayoutOptions{Orientation: &orientation}

	if p.ScaleToPages > 0 {
		pages := p.ScaleToPages
		opts.FitToWidth = &pages
		opts.FitToHeight = &pages
		fit := true
		if err := f.SetSheetProps(sheet, &excelize.SheetPropsOptions{FitToPage: &fit}); err != nil {
			return fmt.Errorf("setting fit to page: %w", err)
		}
	}

	if err := f.SetPageLayout(sheet, opts); err != nil {
		return fmt.Errorf("setting page layout: %w", err)
	}
	return nil
}
