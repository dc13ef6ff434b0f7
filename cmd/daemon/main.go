// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/mocapsync/internal/api"
	"github.com/ManuGH/mocapsync/internal/config"
	"github.com/ManuGH/mocapsync/internal/console"
	xglog "github.com/ManuGH/mocapsync/internal/log"
	"github.com/ManuGH/mocapsync/internal/telemetry"
	"github.com/ManuGH/mocapsync/internal/version"
)

const (
	envConfigPath     = "MOCAPSYNC_CONFIG"
	defaultConfigPath = "mocapsync.yaml"
	serviceName       = "mocapsync"
)

type options struct {
	configPath  string
	showVersion bool
	noConsole   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to config file (YAML); created with defaults when missing")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	fs.BoolVar(&opts.noConsole, "no-console", false, "do not read commands from stdin")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if strings.TrimSpace(opts.configPath) == "" {
		opts.configPath = config.ParseString(envConfigPath, defaultConfigPath)
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		logger := xglog.WithComponent("daemon")
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "daemon.failed").
			Msg("mocapsync stopped with error")
		os.Exit(1)
	}
}

// run loads configuration, builds the bridge and blocks until ctx is done,
// the console quits, or a component fails.
func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer) error {
	xglog.Configure(xglog.Config{Level: "info", Service: serviceName, Version: version.Version})
	logger := xglog.WithComponent("daemon")

	created, err := config.EnsureFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("prepare config file: %w", err)
	}
	if created {
		logger.Info().
			Str(xglog.FieldEvent, "config.created").
			Str("path", opts.configPath).
			Msg("wrote default configuration")
	}

	loader := config.NewLoader(opts.configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: serviceName, Version: version.Version})
	logger = xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("path", opts.configPath).
		Msg("loaded configuration")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "telemetry.shutdown_failed").Msg("telemetry shutdown failed")
		}
	}()

	sess, err := buildSession(ctx, cfg, xglog.WithComponent("session"))
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	// A receiver that cannot bind at startup is fatal; later toggles only
	// report the failure.
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start receiver: %w", err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str(xglog.FieldVersion, version.Version).
		Int(xglog.FieldProcessID, int(sess.Snapshot().ProcessID)).
		Int(xglog.FieldPort, cfg.Broadcast.Port).
		Str(xglog.FieldBaseURL, apiBaseURL(cfg)).
		Bool("send", cfg.Broadcast.Send).
		Bool("receive", cfg.Broadcast.Receive).
		Msg("mocapsync started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	holder := config.NewHolder(cfg, loader)
	updates := make(chan config.AppConfig, 1)
	holder.RegisterListener(updates)
	g.Go(func() error { return holder.Watch(gctx) })
	g.Go(func() error {
		prev := cfg
		for {
			select {
			case <-gctx.Done():
				return nil
			case next := <-updates:
				applyConfig(gctx, sess, prev, next, logger)
				prev = next
			}
		}
	})

	if addr := strings.TrimSpace(cfg.Control.ListenAddr); addr != "" {
		srv := api.New(api.Config{
			Session:            sess,
			Logger:             xglog.WithComponent("api"),
			RateLimitPerMinute: cfg.Control.RateLimit,
			TracingService:     tracingService(cfg),
		})
		g.Go(func() error { return srv.ListenAndServe(gctx, addr) })
	}

	if !opts.noConsole {
		con := console.New(stdin, stdout, sess)
		g.Go(func() error {
			err := con.Run(gctx)
			switch {
			case err == nil:
				cancel()
				return nil
			case errors.Is(err, console.ErrInputClosed):
				logger.Info().Str(xglog.FieldEvent, "console.closed").Msg("stdin closed; console disabled")
				return nil
			case gctx.Err() != nil:
				return nil
			default:
				return err
			}
		})
	}

	err = g.Wait()
	logger.Info().Str(xglog.FieldEvent, "shutdown").Msg("mocapsync stopping")
	return err
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return serviceName
}
