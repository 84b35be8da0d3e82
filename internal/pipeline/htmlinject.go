package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// DefaultPrintCSS is injected into HTML sources before rendering.
const DefaultPrintCSS = "@page{margin:0.5cm;size:A4;}" +
	"body{margin:0;padding:10px;font-family:Arial, sans-serif;-webkit-print-color-adjust:exact;}"

// LandscapePageCSS turns the printed page sideways. Chrome prefers the CSS
// page size over the print call's orientation flag.
const LandscapePageCSS = "@page{size:A4 landscape;}"

var (
	// headOpen matches <head> or <head attr...> but not <header>.
	headOpen = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)
	htmlOpen = regexp.MustCompile(`(?i)<html(\s[^>]*)?>`)
)

// InjectPrintCSS adds a print <style> block to htmlContent:
// right after the opening <head> tag when there is one, inside a new <head>
// after <html> otherwise, and as a full document wrapping the fragment when
// neither tag is present. CSS content is sanitized so it cannot close the
// style block.
func InjectPrintCSS(ctx context.Context, htmlContent, css string) string {
	if ctx.Err() != nil {
		return htmlContent
	}
	if css == "" {
		css = DefaultPrintCSS
	}
	styleBlock := `<style type="text/css" media="print">` + sanitizeCSS(css) + "</style>"

	if loc := headOpen.FindStringIndex(htmlContent); loc != nil {
		return htmlContent[:loc[1]] + styleBlock + htmlContent[loc[1]:]
	}

	if loc := htmlOpen.FindStringIndex(htmlContent); loc != nil {
		return htmlContent[:loc[1]] + "<head>" + styleBlock + "</head>" + htmlContent[loc[1]:]
	}

	var b strings.Builder
	b.Grow(len(htmlContent) + len(styleBlock) + 64)
	b.WriteString("<!DOCTYPE html><html><head>")
	b.WriteString(styleBlock)
	b.WriteString("</head><body>")
	b.WriteString(htmlContent)
	b.WriteString("</body></html>")
	return b.String()
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
