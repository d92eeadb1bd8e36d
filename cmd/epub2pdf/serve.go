package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	epub2pdf "github.com/alnah/go-epub2pdf"
	"github.com/alnah/go-epub2pdf/internal/assets"
	"github.com/alnah/go-epub2pdf/internal/config"
	flag "github.com/spf13/pflag"
)

// Server defaults applied when neither flags, environment nor config set them.
const (
	defaultAddr           = ":8080"
	defaultMaxUploadMB    = 64
	defaultAcquireTimeout = 30 * time.Second
	readHeaderTimeout     = 10 * time.Second
	shutdownTimeout       = 30 * time.Second
)

// runServeCmd parses serve flags and runs the HTTP server until ctx is done.
func runServeCmd(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printServeUsage(env.Stdout)
			return nil
		}
		if errors.Is(err, ErrUsage) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return runServe(ctx, flags, env)
}

// runServe starts the server and shuts it down gracefully on cancellation.
// Jobs in flight finish, or are canceled with their request, before the
// pool is closed.
func runServe(ctx context.Context, flags *serveFlags, env *Environment) error {
	cfg, envCfg, err := loadSettings(flags.common, env)
	if err != nil {
		return err
	}
	mergeRenderFlags(flags.render, flags.page, flags.limits, cfg)
	mergeServeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(env.Stderr, flags.common, envCfg.LogFormat)
	if err != nil {
		return err
	}
	opts, err := converterOptions(cfg, logger)
	if err != nil {
		return err
	}

	loader := env.AssetLoader
	if cfg.Limits.AssetsPath != "" {
		resolver, err := assets.NewAssetResolver(cfg.Limits.AssetsPath)
		if err != nil {
			return fmt.Errorf("%w: %v", epub2pdf.ErrInvalidAssetPath, err)
		}
		loader = resolver
	}

	var defaultBackend epub2pdf.Backend
	if cfg.Render.Backend != "" {
		if defaultBackend, err = epub2pdf.ParseBackend(cfg.Render.Backend); err != nil {
			return err
		}
	}

	size := epub2pdf.ResolvePoolSize(cfg.Server.MaxConcurrent)
	pool := env.NewPool(size, opts...)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing converters", "error", err)
		}
	}()

	srv, err := newServer(serverOptions{
		MaxUploadMB:    cfg.Server.MaxUploadMB,
		RatePerSecond:  cfg.Server.RatePerSecond,
		Burst:          cfg.Server.Burst,
		DefaultBackend: defaultBackend,
	}, pool, loader, logger)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if addr == "" {
		addr = defaultAddr
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.handler(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logger.Info("listening", "addr", addr, "workers", size, "max_upload_mb", srv.maxUploadMB)

	select {
	case err := <-errCh:
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// mergeServeFlags merges serve flags into config. CLI values override config values.
func mergeServeFlags(flags *serveFlags, cfg *config.Config) {
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.maxConcurrent != 0 {
		cfg.Server.MaxConcurrent = flags.maxConcurrent
	}
	if flags.maxUploadMB != 0 {
		cfg.Server.MaxUploadMB = flags.maxUploadMB
	}
	if flags.rate != 0 {
		cfg.Server.RatePerSecond = flags.rate
	}
	if flags.burst != 0 {
		cfg.Server.Burst = flags.burst
	}
	if len(flags.origins) > 0 {
		cfg.Server.AllowedOrigins = flags.origins
	}
}
