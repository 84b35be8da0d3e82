package pipeline

// Kind identifies a Document variant.
type Kind int

// Document variants.
const (
	KindGeneric Kind = iota
	KindSpreadsheet
	KindHTML
)

func (k Kind) String() string {
	switch k {
	case KindSpreadsheet:
		return "spreadsheet"
	case KindHTML:
		return "html"
	default:
		return "generic"
	}
}

// Document is a handle on a loaded document that steps may mutate in place.
type Document interface {
	Kind() Kind
}

// PageStyle is the page setup attached to one sheet. Dimensions are in
// hundredths of a millimetre.
type PageStyle struct {
	Width        int
	Height       int
	Landscape    bool
	ScaleToPages int // 0 leaves scaling to the engine
}

// Sheet is one worksheet and its page style. Page is nil when the engine
// could not read the sheet's page setup.
type Sheet struct {
	Name string
	Page *PageStyle
}

// Spreadsheet is a workbook whose page styles can be changed.
type Spreadsheet struct {
	Sheets []*Sheet
}

// Kind implements Document.
func (*Spreadsheet) Kind() Kind { return KindSpreadsheet }

// HTMLDocument holds HTML source text.
type HTMLDocument struct {
	Content   string
	Landscape bool
}

// Kind implements Document.
func (*HTMLDocument) Kind() Kind { return KindHTML }

// Generic is any document the pipeline has no structured access to.
type Generic struct {
	Description string
}

// Kind implements Document.
func (*Generic) Kind() Kind { return KindGeneric }

var (
	_ Document = (*Spreadsheet)(nil)
	_ Document = (*HTMLDocument)(nil)
	_ Document = (*Generic)(nil)
)
