package pipeline

import (
	"context"
	"strings"
	"testing"
)

func TestSanitizeCSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no escape needed",
			input:    "body { color: red; }",
			expected: "body { color: red; }",
		},
		{
			name:     "escapes style close",
			input:    "</style>",
			expected: `<\/style>`,
		},
		{
			name:     "escapes script close",
			input:    "</script>",
			expected: `<\/script>`,
		},
		{
			name:     "multiple occurrences",
			input:    "</a></b>",
			expected: `<\/a><\/b>`,
		},
		{
			name:     "nested sequences",
			input:    "</</style>",
			expected: `<\/<\/style>`,
		},
		{
			name:     "case variation STYLE",
			input:    "</STYLE>",
			expected: `<\/STYLE>`,
		},
		{
			name:     "case variation Script",
			input:    "</Script>",
			expected: `<\/Script>`,
		},
		{
			name:     "mixed case sTyLe",
			input:    "</sTyLe>",
			expected: `<\/sTyLe>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := sanitizeCSS(tt.input)
			if got != tt.expected {
				t.Errorf("sanitizeCSS(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

const printStyle = `<style type="text/css" media="print">` + DefaultPrintCSS + `</style>`

func TestInjectPrintCSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		html     string
		css      string
		expected string
	}{
		{
			name:     "inserts after opening head",
			html:     "<html><head><title>T</title></head><body>Hi</body></html>",
			expected: "<html><head>" + printStyle + "<title>T</title></head><body>Hi</body></html>",
		},
		{
			name:     "head with attributes and mixed case",
			html:     `<HTML><HEAD lang="fr"></HEAD><BODY>Hi</BODY></HTML>`,
			expected: `<HTML><HEAD lang="fr">` + printStyle + `</HEAD><BODY>Hi</BODY></HTML>`,
		},
		{
			name:     "header element is not a head",
			html:     "<html><body><header>Top</header></body></html>",
			expected: "<html><head>" + printStyle + "</head><body><header>Top</header></body></html>",
		},
		{
			name:     "synthesizes head after html",
			html:     `<html lang="en"><body>Hi</body></html>`,
			expected: `<html lang="en"><head>` + printStyle + `</head><body>Hi</body></html>`,
		},
		{
			name:     "wraps bare fragment",
			html:     "<p>Hello</p>",
			expected: "<!DOCTYPE html><html><head>" + printStyle + "</head><body><p>Hello</p></body></html>",
		},
		{
			name:     "wraps plain text",
			html:     "just text",
			expected: "<!DOCTYPE html><html><head>" + printStyle + "</head><body>just text</body></html>",
		},
		{
			name:     "custom css is sanitized",
			html:     "<head></head>",
			css:      "</style><script>alert(1)</script>",
			expected: `<head><style type="text/css" media="print"><\/style><script>alert(1)<\/script></style></head>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := InjectPrintCSS(context.Background(), tt.html, tt.css)
			if got != tt.expected {
				t.Errorf("InjectPrintCSS() =\n%s\nwant\n%s", got, tt.expected)
			}
		})
	}
}

func TestInjectPrintCSS_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	html := "<p>Hello</p>"
	if got := InjectPrintCSS(ctx, html, ""); got != html {
		t.Errorf("InjectPrintCSS() with canceled context = %q, want unchanged", got)
	}
}

func TestInjectPrintCSS_OnlyFirstHead(t *testing.T) {
	t.Parallel()

	html := "<html><head></head><body><pre>&lt;head&gt;</pre><head></head></body></html>"
	got := InjectPrintCSS(context.Background(), html, "")
	if n := strings.Count(got, "media=\"print\""); n != 1 {
		t.Errorf("style injected %d times, want 1", n)
	}
}
