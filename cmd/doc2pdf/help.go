package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2pdf [command] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Run the conversion HTTP service (default)")
	fmt.Fprintln(w, "  doctor     Check conversion engines and directories")
	fmt.Fprintln(w, "  config     Print the effective configuration as YAML")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -c, --config <name>    Config file name or path")
	fmt.Fprintln(w, "  -v, --verbose          Log at debug level")
	fmt.Fprintln(w, "      --host <s>         Listen host (serve)")
	fmt.Fprintln(w, "  -p, --port <n>         Listen port (serve)")
	fmt.Fprintln(w, "      --log-format <s>   console or json (serve)")
	fmt.Fprintln(w, "      --debug            Keep converted PDFs (serve)")
	fmt.Fprintln(w, "      --strict           Exit when an engine is unavailable (serve)")
	fmt.Fprintln(w, "      --json             Machine-readable output (doctor)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every config field can also be set with a DOC2PDF_* variable,")
	fmt.Fprintln(w, "for example DOC2PDF_PORT=8080 or DOC2PDF_NO_SANDBOX=true.")
	fmt.Fprintln(w, "Flags override the environment, which overrides the config file.")
}
