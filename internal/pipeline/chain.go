package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/phuslu/log"
)

// Step names, in chain order.
const (
	StepLandscape = "landscape"
	StepFitToPage = "fit-to-page"
	StepPrintCSS  = "print-css"
)

// ErrNotApplicable is returned by a step given a document variant it does not handle.
var ErrNotApplicable = errors.New("step does not apply to document")

// Step is one named mutation. Apply changes doc in place; an error means the
// document was left as it was (or only partially changed, per sheet).
type Step struct {
	Name  string
	Apply func(ctx context.Context, doc Document) error
}

// Options selects the steps of a chain.
type Options struct {
	Landscape bool
	FitToPage bool
	PrintCSS  bool
	CSS       string // print rules for PrintCSS; empty selects DefaultPrintCSS
}

// Chain is an ordered list of steps. The empty chain leaves documents unchanged.
type Chain []Step

// Report lists what a chain did to a document.
type Report struct {
	Applied []string
	Skipped []string
}

// BuildChain returns the steps selected by opts in a fixed order.
func BuildChain(opts Options) Chain {
	var c Chain
	if opts.Landscape {
		c = append(c, Landscape())
	}
	if opts.FitToPage {
		c = append(c, FitToPage())
	}
	if opts.PrintCSS {
		c = append(c, PrintCSS(opts.CSS))
	}
	return c
}

// Names returns the step names in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}

// Apply runs every step in order. Step errors and panics are logged at warn
// level and the chain continues with the next step.
func (c Chain) Apply(ctx context.Context, doc Document, logger *log.Logger) Report {
	var r Report
	for _, step := range c {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Str("step", step.Name).Msg("mutation skipped")
			r.Skipped = append(r.Skipped, step.Name)
			continue
		}
		if err := runStep(ctx, step, doc); err != nil {
			logger.Warn().
				Err(err).
				Str("step", step.Name).
				Str("document", doc.Kind().String()).
				Msg("mutation step failed, continuing")
			r.Skipped = append(r.Skipped, step.Name)
			continue
		}
		r.Applied = append(r.Applied, step.Name)
	}
	return r
}

func runStep(ctx context.Context, step Step, doc Document) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return step.Apply(ctx, doc)
}
