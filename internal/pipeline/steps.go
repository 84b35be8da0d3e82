package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoPageStyle is reported for sheets without a readable page style.
var ErrNoPageStyle = errors.New("sheet has no page style")

// Landscape switches every sheet to landscape, swapping width and height when
// the page is taller than wide so the dimensions agree with the orientation.
// HTML documents are marked landscape for a later PrintCSS step.
func Landscape() Step {
	return Step{
		Name: StepLandscape,
		Apply: func(_ context.Context, doc Document) error {
			if h, ok := doc.(*HTMLDocument); ok {
				h.Landscape = true
				return nil
			}
			return eachPageStyle(doc, func(p *PageStyle) {
				p.Landscape = true
				if p.Width < p.Height {
					p.Width, p.Height = p.Height, p.Width
				}
			})
		},
	}
}

// FitToPage scales every sheet onto a single page.
func FitToPage() Step {
	return Step{
		Name: StepFitToPage,
		Apply: func(_ context.Context, doc Document) error {
			return eachPageStyle(doc, func(p *PageStyle) {
				p.ScaleToPages = 1
			})
		},
	}
}

// PrintCSS injects a print stylesheet into an HTML document. An empty css
// selects DefaultPrintCSS. Landscape documents get LandscapePageCSS last so
// its page size wins over any size in css.
func PrintCSS(css string) Step {
	return Step{
		Name: StepPrintCSS,
		Apply: func(ctx context.Context, doc Document) error {
			h, ok := doc.(*HTMLDocument)
			if !ok {
				return fmt.Errorf("%w: %s is not html", ErrNotApplicable, doc.Kind())
			}
			rules := css
			if h.Landscape {
				if rules == "" {
					rules = DefaultPrintCSS
				}
				rules += LandscapePageCSS
			}
			h.Content = InjectPrintCSS(ctx, h.Content, rules)
			return nil
		},
	}
}

// eachPageStyle applies fn to every sheet with a page style. Sheets without
// one are skipped and reported; the others are still changed.
func eachPageStyle(doc Document, fn func(*PageStyle)) error {
	s, ok := doc.(*Spreadsheet)
	if !ok {
		return fmt.Errorf("%w: %s is not a spreadsheet", ErrNotApplicable, doc.Kind())
	}

	var errs []error
	for _, sheet := range s.Sheets {
		if sheet == nil || sheet.Page == nil {
			name := "<nil>"
			if sheet != nil {
				name = sheet.Name
			}
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoPageStyle, name))
			continue
		}
		fn(sheet.Page)
	}
	return errors.Join(errs...)
}
