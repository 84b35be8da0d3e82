// Package pipeline prepares documents before they are handed to a rendering
// engine.
//
// A Chain is an ordered list of best-effort Steps applied to a Document:
//   - landscape: switch every spreadsheet page style to landscape
//   - fit-to-page: scale every spreadsheet sheet onto one page
//   - print-css: inject print rules into an HTML document
//
// Documents are a closed set of variants (Spreadsheet, HTMLDocument,
// Generic). A step that does not apply to the variant it receives is a
// logged no-op. A failing step never aborts the chain.
//
// The package also converts Markdown sources to HTML with Goldmark so they
// can follow the HTML rendering path.
package pipeline
