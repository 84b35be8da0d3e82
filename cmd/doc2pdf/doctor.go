package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	doc2pdf "github.com/alnah/go-doc2pdf"
	"github.com/alnah/go-doc2pdf/internal/config"
	"github.com/alnah/go-doc2pdf/internal/hints"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Chrome   engineInfo `json:"chrome"`
	Office   engineInfo `json:"libreoffice"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// engineInfo holds detection results for one external engine.
type engineInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox *bool  `json:"sandbox,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	Engine        string `json:"renderer_engine"`
}

// systemInfo holds filesystem check results.
type systemInfo struct {
	TempWritable   bool   `json:"temp_writable"`
	OutputDir      string `json:"output_dir"`
	OutputWritable bool   `json:"output_writable"`
}

// lookOffice and browserPath are swapped in tests.
var (
	lookOffice  = doc2pdf.LookupOffice
	browserPath = launcher.LookPath
)

// runDoctorCmd checks engines and directories and returns an exit code.
// Exit codes: 0 = ready (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	var rest []string
	for _, arg := range args {
		if arg == "--json" {
			jsonOutput = true
			continue
		}
		rest = append(rest, arg)
	}
	flags, err := parseCommonFlags("doctor", rest)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	cfg, err := resolveConfig(flags.config, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	result := runDoctor(cfg, env)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks. A missing engine is a warning:
// the service still runs and answers 503 for that conversion kind. Only
// unusable directories are errors.
func runDoctor(cfg *config.Config, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:     runtime.GOOS,
			Arch:   runtime.GOARCH,
			Engine: cfg.Renderer.Engine,
		},
	}

	checkEnvironment(result, env)
	checkChrome(result, cfg)
	checkOffice(result, cfg)
	checkSystem(result, cfg)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkChrome locates Chrome the way rod's launcher does.
func checkChrome(result *doctorResult, cfg *config.Config) {
	chromePath := cfg.Renderer.BrowserBin
	if chromePath == "" {
		var found bool
		if chromePath, found = browserPath(); !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found, HTML conversion disabled"+
					hints.ForBrowserConnect(cfg.Renderer.NoSandbox, cfg.Renderer.BrowserBin))
			return
		}
	}
	if _, err := os.Stat(chromePath); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
	result.Chrome.Version = engineVersion(result, "Chrome", chromePath)

	sandbox := !cfg.Renderer.NoSandbox
	result.Chrome.Sandbox = &sandbox
	if sandbox && (result.Env.Container || result.Env.CI) {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but sandbox enabled. Set DOC2PDF_NO_SANDBOX=true")
	}
}

// checkOffice locates LibreOffice.
func checkOffice(result *doctorResult, cfg *config.Config) {
	path, err := lookOffice(cfg.Office.Binary)
	if err != nil {
		result.Warnings = append(result.Warnings,
			"LibreOffice not found, spreadsheet conversion disabled"+hints.ForOfficeMissing())
		return
	}
	result.Office.Found = true
	result.Office.Path = path
	result.Office.Version = engineVersion(result, "LibreOffice", path)
}

// engineVersion runs "<bin> --version"; failure is only a warning.
func engineVersion(result *doctorResult, name, bin string) string {
	out, err := exec.Command(bin, "--version").Output() // #nosec G204 -- path comes from config or PATH lookup
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get %s version: %v", name, err))
		return ""
	}
	return strings.TrimSpace(string(out))
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, env *Environment) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env)

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if env.getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// isContainer detects a container environment and names the signal found.
func isContainer(env *Environment) (bool, string) {
	if env.getenv("DOC2PDF_CONTAINER") == "1" {
		return true, "DOC2PDF_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := env.getenv("container"); v != "" {
		return true, "container=" + v
	}
	if env.getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp and output directories are writable.
func checkSystem(result *doctorResult, cfg *config.Config) {
	tmpDir := os.TempDir()
	if writable(tmpDir) {
		result.System.TempWritable = true
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	}

	outDir := cfg.Artifacts.OutputDir
	if outDir == "" {
		outDir = filepath.Join(tmpDir, "doc2pdf")
	}
	result.System.OutputDir = outDir
	if err := os.MkdirAll(outDir, 0o750); err == nil && writable(outDir) {
		result.System.OutputWritable = true
	} else {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Output directory not writable: %s", outDir)+hints.ForOutputDirectory())
	}
}

func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".doc2pdf-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "doc2pdf doctor")
	fmt.Fprintln(w)

	printEngine(w, "Chrome/Chromium (HTML, Markdown)", r.Chrome)
	printEngine(w, "LibreOffice (spreadsheets)", r.Office)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	fmt.Fprintf(w, "  [OK] Renderer engine: %s\n", r.Env.Engine)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	printCheck(w, r.System.TempWritable, "Temp directory: writable", "Temp directory: not writable")
	printCheck(w, r.System.OutputWritable,
		"Output directory: "+r.System.OutputDir, "Output directory not writable: "+r.System.OutputDir)
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

func printEngine(w io.Writer, title string, e engineInfo) {
	fmt.Fprintln(w, title)
	if !e.Found {
		fmt.Fprintln(w, "  [WARN] Not found")
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "  [OK] Found at %s\n", e.Path)
	if e.Version != "" {
		fmt.Fprintf(w, "  [OK] Version: %s\n", e.Version)
	}
	if e.Sandbox != nil {
		if *e.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (DOC2PDF_NO_SANDBOX)")
		}
	}
	fmt.Fprintln(w)
}

func printCheck(w io.Writer, ok bool, okMsg, errMsg string) {
	if ok {
		fmt.Fprintf(w, "  [OK] %s\n", okMsg)
	} else {
		fmt.Fprintf(w, "  [ERROR] %s\n", errMsg)
	}
}
