package main

import (
	"fmt"

	"github.com/alnah/go-doc2pdf/internal/yamlutil"
)

// runConfigCmd prints the effective configuration: file, then environment.
func runConfigCmd(args []string, env *Environment) error {
	flags, err := parseCommonFlags("config", args)
	if err != nil {
		return err
	}
	if flags.help {
		printUsage(env.Stdout)
		return nil
	}

	cfg, err := resolveConfig(flags.config, env)
	if err != nil {
		return err
	}
	out, err := yamlutil.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = env.Stdout.Write(out)
	return err
}
