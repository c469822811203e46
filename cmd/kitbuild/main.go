// Command kitbuild indexes the go packages of a workspace once per configured environment, each
// environment resolving its own services.
//
// It is configured through the environment, for instance:
//
//	KITBUILD_ENVIRONMENTS=debug,release KITBUILD_PARALLEL=true KITBUILD_LOG_LEVEL=debug kitbuild
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/a-peyrard/kitdi/cmd/kitbuild/pipeline"
	"github.com/a-peyrard/kitdi/config"
	"github.com/a-peyrard/kitdi/environment"
	"github.com/a-peyrard/kitdi/logging"
	"github.com/rs/zerolog"
)

func main() {
	opts := []config.Option{config.WithEnvPrefix(config.EnvPrefix)}
	if _, err := os.Stat(".env"); err == nil {
		opts = append(opts, config.WithEnvFile(".env"))
	}
	cfg, err := config.Load[config.Build](opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load the configuration:\n\t%v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create the logger:\n\t%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error().Err(err).Msg("build failed")
		stop()
		os.Exit(1)
	}
	logger.Info().Strs("environments", cfg.Environments).Msg("build succeeded")
}

func run(ctx context.Context, logger zerolog.Logger, cfg *config.Build) (err error) {
	set := environment.New(logger, environment.WithParallel(cfg.Parallel))
	defer func() {
		err = errors.Join(err, set.Close())
	}()

	for _, name := range cfg.Environments {
		if _, err := set.Add(name, cfg, pipeline.Bootstrap); err != nil {
			return err
		}
	}

	if err := set.Warm(ctx); err != nil {
		return err
	}
	if logger.Debug().Enabled() {
		for _, name := range set.Names() {
			env, _ := set.Get(name)
			logger.Debug().Str("environment", name).Msgf("services:\n%s", env.Provider.Describe())
		}
	}

	return set.RunAll(ctx)
}
