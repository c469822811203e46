// Package environment manages one service provider per build environment.
//
// Each environment (debug, release, ...) gets its own Collection, populated by the same bootstraps,
// so services are shared within an environment and never across environments.
package environment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/a-peyrard/kitdi"
	"github.com/a-peyrard/kitdi/config"
	"github.com/a-peyrard/kitdi/option"
	"github.com/a-peyrard/kitdi/runner"
	"github.com/a-peyrard/kitdi/slices"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/a-peyrard/kitdi/environment"

type (
	// Bootstrap registers the services of an environment.
	Bootstrap func(c *kitdi.Collection, env *Environment) error

	// Environment is a named provider. The environment itself, its config and its logger are
	// registered as instances, so services can depend on them.
	Environment struct {
		Name     string
		ID       uuid.UUID
		Config   *config.Build
		Provider *kitdi.Provider
		Logger   zerolog.Logger
	}

	// Set holds the environments by name.
	Set struct {
		mu           sync.RWMutex
		environments map[string]*Environment

		logger   zerolog.Logger
		tracer   trace.Tracer
		parallel bool
	}

	Option = option.Option[Options]

	Options struct {
		tracer   trace.Tracer
		parallel bool
	}
)

// WithTracer sets the tracer used to trace the runs, the global one is used by default.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *Options) {
		opts.tracer = tracer
	}
}

// WithParallel runs the environments concurrently instead of one after the other.
func WithParallel(parallel bool) Option {
	return func(opts *Options) {
		opts.parallel = parallel
	}
}

func New(logger zerolog.Logger, opts ...Option) *Set {
	options := option.Build(&Options{}, opts...)
	if options.tracer == nil {
		options.tracer = otel.Tracer(tracerName)
	}

	return &Set{
		environments: make(map[string]*Environment),
		logger:       logger,
		tracer:       options.tracer,
		parallel:     options.parallel,
	}
}

// Add creates the environment name, runs the bootstraps on its collection and builds its provider.
func (s *Set) Add(name string, cfg *config.Build, bootstraps ...Bootstrap) (*Environment, error) {
	if name == "" {
		return nil, errors.New("environment name must not be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("environment %s has no config", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.environments[name]; found {
		return nil, fmt.Errorf("environment %s already exists", name)
	}

	env := &Environment{
		Name:   name,
		ID:     uuid.New(),
		Config: cfg,
	}
	env.Logger = s.logger.With().
		Str("environment", name).
		Str("environment_id", env.ID.String()).
		Logger()

	c := kitdi.NewCollection(kitdi.WithLogger(env.Logger))
	if err := errors.Join(
		kitdi.AddInstance[*Environment](c, env),
		kitdi.AddInstance[*config.Build](c, cfg),
		kitdi.AddInstance[zerolog.Logger](c, env.Logger),
	); err != nil {
		return nil, fmt.Errorf("failed to register environment %s:\n\t%w", name, err)
	}
	for i, bootstrap := range bootstraps {
		if err := bootstrap(c, env); err != nil {
			return nil, fmt.Errorf("failed to bootstrap environment %s (bootstrap #%d):\n\t%w", name, i, err)
		}
	}
	env.Provider = c.Build()

	s.environments[name] = env
	env.Logger.Debug().Int("services", c.Len()).Msg("environment created")

	return env, nil
}

func (s *Set) Get(name string) (*Environment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env, found := s.environments[name]
	return env, found
}

// Names returns the environment names, sorted.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.environments))
	for name := range s.environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Set) all() []*Environment {
	names := s.Names()
	envs := make([]*Environment, 0, len(names))
	for _, name := range names {
		env, _ := s.Get(name)
		envs = append(envs, env)
	}
	return envs
}

// Warm resolves every registered service of every environment, all concurrently, so the
// configuration errors surface before anything runs.
func (s *Set) Warm(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, env := range s.all() {
		for _, key := range env.Provider.Keys() {
			group.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := env.Provider.Resolve(key); err != nil {
					return fmt.Errorf("failed to warm %s in environment %s:\n\t%w", key, env.Name, err)
				}
				return nil
			})
		}
	}
	return group.Wait()
}

// RunAll resolves the runner.Runnable of each environment and runs them. An environment without
// runnable is skipped.
func (s *Set) RunAll(ctx context.Context) error {
	runnableKey := kitdi.KeyOf[runner.Runnable]()

	var runnables []runner.Runnable
	for _, env := range s.all() {
		if !env.Provider.Contains(runnableKey) {
			env.Logger.Warn().Msg("no runnable registered, skipping environment")
			continue
		}
		runnable, err := kitdi.Get[runner.Runnable](env.Provider)
		if err != nil {
			return fmt.Errorf("failed to resolve the runnable of environment %s:\n\t%w", env.Name, err)
		}
		runnables = append(runnables, s.traced(env, runnable))
	}

	if s.parallel {
		return runner.RunAll(ctx, runnables...)
	}
	return runner.Sequence(runnables...).Run(ctx)
}

func (s *Set) traced(env *Environment, runnable runner.Runnable) runner.Runnable {
	return runner.RunnableFunc(func(ctx context.Context) error {
		ctx, span := s.tracer.Start(ctx, "environment.run", trace.WithAttributes(
			attribute.String("kitdi.environment", env.Name),
			attribute.String("kitdi.environment.id", env.ID.String()),
		))
		defer span.End()

		env.Logger.Info().Msg("running environment")
		if err := runnable.Run(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			env.Logger.Error().Err(err).Msg("environment failed")
			return fmt.Errorf("environment %s failed:\n\t%w", env.Name, err)
		}
		span.SetStatus(codes.Ok, "")
		env.Logger.Info().Msg("environment done")
		return nil
	})
}

// Close closes the resolved services implementing io.Closer, in reverse construction order so a
// service is closed before its dependencies, and joins the failures.
func (s *Set) Close() error {
	var errs []error
	for _, env := range s.all() {
		closers := slices.Filter(env.Provider.Built(), func(instance any) bool {
			_, ok := instance.(io.Closer)
			return ok
		})
		for _, closer := range slices.Reverse(closers) {
			if err := closer.(io.Closer).Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close %T in environment %s: %w", closer, env.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
