// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// inCI reports whether a common CI environment variable is set.
func inCI(getenv func(string) string) bool {
	return getenv("CI") != "" ||
		getenv("GITHUB_ACTIONS") != "" ||
		getenv("GITLAB_CI") != "" ||
		getenv("JENKINS_URL") != ""
}

// ForBrowserConnect returns hints for a browser that failed to start, given
// the renderer settings in effect.
func ForBrowserConnect(noSandbox bool, browserBin string) string {
	return forBrowserConnect(noSandbox, browserBin, os.Getenv)
}

func forBrowserConnect(noSandbox bool, browserBin string, getenv func(string) string) string {
	var hints []string

	if (inCI(getenv) || IsInContainer()) && !noSandbox {
		hints = append(hints, "set DOC2PDF_NO_SANDBOX=true for Docker/CI")
	}
	if browserBin == "" {
		hints = append(hints, "set DOC2PDF_BROWSER_BIN to use an installed Chrome")
	}
	return formatHints(hints)
}

// ForOfficeMissing returns hints for a missing LibreOffice installation.
func ForOfficeMissing() string {
	return format("install LibreOffice (apt install libreoffice-calc) or set DOC2PDF_OFFICE_BIN")
}

// ForTimeout returns a hint about raising the engine timeout.
func ForTimeout() string {
	return format("for large documents, raise conversion.engineTimeout or DOC2PDF_ENGINE_TIMEOUT")
}

// ForBusy returns a hint for a renderer pool that stayed saturated.
func ForBusy() string {
	return format("raise renderer.poolSize or renderer.acquireTimeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config and creating a config in ~/.config/go-doc2pdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-doc2pdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable, or set DOC2PDF_OUTPUT_DIR")
}

// ForAddressInUse returns a hint for a listener that could not bind.
func ForAddressInUse() string {
	return format("another process holds the port; set --port or DOC2PDF_PORT")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
