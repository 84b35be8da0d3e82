package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrUsage marks invalid command-line input.
var ErrUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	verbose bool
	help    bool
}

// serveFlags holds flags for the serve command. Only flags set explicitly
// override the config file and environment.
type serveFlags struct {
	common    commonFlags
	host      string
	port      int
	logFormat string
	debug     bool
	strict    bool
	changed   func(name string) bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level")
	fs.BoolVarP(&f.help, "help", "h", false, "show help")
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	return fs
}

// parseServeFlags parses serve flags. Positional arguments are rejected.
func parseServeFlags(args []string) (*serveFlags, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve")
	addCommonFlags(fs, &f.common)
	fs.StringVar(&f.host, "host", "", "listen host")
	fs.IntVarP(&f.port, "port", "p", 0, "listen port")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: console, json")
	fs.BoolVar(&f.debug, "debug", false, "keep converted PDFs in the debug directory")
	fs.BoolVar(&f.strict, "strict", false, "exit when a conversion engine is unavailable")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	f.changed = fs.Changed
	return f, nil
}

// parseCommonFlags parses commands that only take the common flags.
func parseCommonFlags(name string, args []string) (*commonFlags, error) {
	f := &commonFlags{}
	fs := newFlagSet(name)
	addCommonFlags(fs, f)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	return f, nil
}
