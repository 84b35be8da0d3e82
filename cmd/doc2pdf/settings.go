package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-doc2pdf/internal/config"
	"github.com/alnah/go-doc2pdf/internal/hints"
)

// resolveConfig layers the config file, DOC2PDF_* variables and flags, in
// that order, and validates the result.
func resolveConfig(nameOrPath string, env *Environment) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if nameOrPath != "" {
		loaded, err := config.LoadConfig(nameOrPath)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) && !strings.ContainsAny(nameOrPath, `/\`) {
				return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(config.SearchPaths(nameOrPath)))
			}
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(env.getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyServeFlags overrides cfg with flags set on the command line.
func applyServeFlags(cfg *config.Config, f *serveFlags) error {
	if f.changed == nil {
		return nil
	}
	if f.changed("host") {
		cfg.Server.Host = f.host
	}
	if f.changed("port") {
		cfg.Server.Port = f.port
	}
	if f.changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if f.changed("debug") {
		cfg.Conversion.Debug = f.debug
	}
	if f.common.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg.Validate()
}
