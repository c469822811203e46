// Package runner runs the tasks resolved from the providers.
package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type (
	// Runnable represents a component that can be run with a context.
	Runnable interface {
		Run(ctx context.Context) error
	}

	// RunnableFunc adapts a function to Runnable.
	RunnableFunc func(ctx context.Context) error
)

func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// RunAll runs all the provided runnables concurrently and waits for all of them to finish.
//
// The first failure cancels the context given to the others, and is the returned error.
func RunAll(parentCtx context.Context, runnables ...Runnable) error {
	group, ctx := errgroup.WithContext(parentCtx)

	for _, runnable := range runnables {
		group.Go(func() error {
			return runnable.Run(ctx)
		})
	}

	return group.Wait()
}

// Sequence creates a runnable running the given runnables one after the other, stopping at the
// first failure or when the context is done.
func Sequence(runnables ...Runnable) Runnable {
	return RunnableFunc(func(ctx context.Context) error {
		for i, runnable := range runnables {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := runnable.Run(ctx); err != nil {
				return fmt.Errorf("failed to run step %d:\n\t%w", i, err)
			}
		}
		return nil
	})
}
