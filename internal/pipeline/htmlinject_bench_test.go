//go:build bench

package pipeline

import (
	"context"
	"strings"
	"testing"
)

// BenchmarkInjectPrintCSS benchmarks print stylesheet injection.
// Runs on every HTML and Markdown conversion.
func BenchmarkInjectPrintCSS(b *testing.B) {
	ctx := context.Background()

	smallHTML := `<!DOCTYPE html>
<html>
<head><title>Test</title></head>
<body><h1>Hello</h1></body>
</html>`

	largeHTML := `<!DOCTYPE html>
<html>
<head><title>Test</title></head>
<body>` + strings.Repeat("<p>Paragraph content here.</p>\n", 500) + `</body>
</html>`

	smallCSS := "body { margin: 0; }"
	largeCSS := strings.Repeat(".class-name { color: red; font-size: 14px; margin: 10px; }\n", 100)

	inputs := []struct {
		name string
		html string
		css  string
	}{
		{"small_html_small_css", smallHTML, smallCSS},
		{"small_html_large_css", smallHTML, largeCSS},
		{"large_html_small_css", largeHTML, smallCSS},
		{"large_html_large_css", largeHTML, largeCSS},
		{"no_head_tag", "<html><body><p>Content</p></body></html>", smallCSS},
		{"bare_fragment", "<p>Content</p>", smallCSS},
		{"default_css", smallHTML, ""},
	}

	for _, input := range inputs {
		b.Run(input.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				result := InjectPrintCSS(ctx, input.html, input.css)
				_ = result
			}
		})
	}
}

// BenchmarkSanitizeCSS benchmarks CSS sanitization.
// Tests escaping of potentially dangerous sequences.
func BenchmarkSanitizeCSS(b *testing.B) {
	inputs := []struct {
		name string
		css  string
	}{
		{"clean", strings.Repeat(".class { color: red; }\n", 50)},
		{"with_escapes", strings.Repeat(".class { content: '</style>'; }\n", 50)},
		{"large_clean", strings.Repeat(".class { color: red; font-size: 14px; }\n", 500)},
	}

	for _, input := range inputs {
		b.Run(input.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				result := sanitizeCSS(input.css)
				_ = result
			}
		})
	}
}
