package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/phuslu/log"
	"go.uber.org/automaxprocs/maxprocs"

	doc2pdf "github.com/alnah/go-doc2pdf"
	"github.com/alnah/go-doc2pdf/internal/config"
	"github.com/alnah/go-doc2pdf/internal/hints"
	"github.com/alnah/go-doc2pdf/internal/logging"
	"github.com/alnah/go-doc2pdf/internal/server"
)

// ErrListen wraps failures to bind the HTTP listener.
var ErrListen = errors.New("cannot listen")

// listen is swapped in tests.
var listen = func(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// runServe runs the HTTP service until ctx ends, then drains in-flight
// conversions within the configured shutdown timeout.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args)
	if err != nil {
		return err
	}
	if flags.common.help {
		printUsage(env.Stdout)
		return nil
	}

	cfg, err := resolveConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cfg, flags); err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: env.Stderr,
	})
	// Error ignored: maxprocs.Set only fails on an invalid GOMAXPROCS env,
	// in which case the runtime default applies.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug().Msgf(format, args...)
	}))

	eng, err := startEngines(cfg, flags.strict, logger)
	if err != nil {
		return err
	}

	orch, err := doc2pdf.NewOrchestrator(orchestratorOptions(cfg, eng, logger)...)
	if err != nil {
		eng.close()
		return err
	}

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, orch, logger)

	ln, err := listen(cfg.Server.Addr())
	if err != nil {
		_ = orch.Close(context.Background())
		hint := ""
		if errors.Is(err, syscall.EADDRINUSE) {
			hint = hints.ForAddressInUse()
		}
		return fmt.Errorf("%w on %s: %w%s", ErrListen, cfg.Server.Addr(), err, hint)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err = <-serveErr:
		logger.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	}

	return errors.Join(err, shutdown(srv, orch, cfg, logger))
}

// shutdown stops the listener first so no new conversion is accepted,
// then drains the orchestrator.
func shutdown(srv *server.Server, orch *doc2pdf.Orchestrator, cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := orch.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("closing orchestrator: %w", err))
	}
	logger.Info().Msg("doc2pdf stopped")
	return errors.Join(errs...)
}

func orchestratorOptions(cfg *config.Config, eng *engines, logger *log.Logger) []doc2pdf.Option {
	opts := []doc2pdf.Option{
		doc2pdf.WithLogger(logger),
		doc2pdf.WithRendererPool(eng.pool),
		doc2pdf.WithEngineTimeout(cfg.Conversion.EngineTimeout),
		doc2pdf.WithDebug(cfg.Conversion.Debug),
		doc2pdf.WithStorage(doc2pdf.StorageConfig{
			OutputDir:   cfg.Artifacts.OutputDir,
			LocalDir:    cfg.Artifacts.LocalDir,
			DebugDir:    cfg.Artifacts.DebugDir,
			InputGrace:  cfg.Artifacts.InputGrace,
			OutputGrace: cfg.Artifacts.OutputGrace,
		}),
		doc2pdf.WithScheduler(doc2pdf.SchedulerConfig{
			Workers:       cfg.Scheduler.Workers,
			QueueSize:     cfg.Scheduler.QueueSize,
			ShutdownGrace: cfg.Scheduler.ShutdownGrace,
		}),
	}
	if cfg.Conversion.PrintCSS != "" {
		opts = append(opts, doc2pdf.WithPrintCSS(cfg.Conversion.PrintCSS))
	}
	if eng.office != nil {
		opts = append(opts, doc2pdf.WithOfficeConverter(eng.office))
	}
	return opts
}
