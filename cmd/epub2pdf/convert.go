package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	epub2pdf "github.com/alnah/go-epub2pdf"
	flag "github.com/spf13/pflag"
)

// runConvertCmd parses convert flags and runs the conversion.
func runConvertCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseConvertFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printConvertUsage(env.Stdout)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return runConvert(ctx, positional, flags, env)
}

// runConvert orchestrates the conversion process.
func runConvert(ctx context.Context, positionalArgs []string, flags *convertFlags, env *Environment) error {
	// Validate worker count early
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	cfg, envCfg, err := loadSettings(flags.common, env)
	if err != nil {
		return err
	}

	// Merge CLI flags into config (CLI wins)
	mergeRenderFlags(flags.render, flags.page, flags.limits, cfg)
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

	files, err := discoverInputs(positionalArgs, outputDirFor(flags.output, cfg.Output.Dir))
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no .epub files found in %s", ErrNoInput, strings.Join(positionalArgs, ", "))
	}

	workers := flags.workers
	if workers == 0 {
		workers = envCfg.Workers
	}
	if err := validateWorkers(workers); err != nil {
		return err
	}
	size := min(epub2pdf.ResolvePoolSize(workers), len(files))
	logger.Debug("starting conversion", "files", len(files), "workers", size)

	pool := env.NewPool(size, opts...)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing converters", "error", err)
		}
	}()

	results := convertBatch(ctx, pool, files)

	failed := printResultsWithWriter(results, flags.common.quiet, flags.common.verbose, env)
	if failed > 0 {
		return newBatchError(results, failed)
	}
	return nil
}
