package main

import (
	"context"
	"fmt"
	"os"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := notifyContext(context.Background())
	code := runMain(ctx, os.Args[1:], DefaultEnv())
	stop()
	os.Exit(code)
}

// runMain dispatches to a command and returns the process exit code.
// With no command, or a leading flag, it serves.
func runMain(ctx context.Context, args []string, env *Environment) int {
	cmd := "serve"
	if len(args) > 0 && !isFlag(args[0]) {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return report(env, runServe(ctx, args, env))
	case "doctor":
		return runDoctorCmd(args, env)
	case "config":
		return report(env, runConfigCmd(args, env))
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "doc2pdf %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		printUsage(env.Stdout)
		return ExitSuccess
	default:
		fmt.Fprintf(env.Stderr, "unknown command %q\n\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}
}

func isFlag(arg string) bool {
	return len(arg) > 1 && arg[0] == '-' && arg != "--version" && arg != "-h" && arg != "--help"
}

// report prints err and maps it to an exit code.
func report(env *Environment, err error) int {
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
	}
	return exitCodeFor(err)
}
