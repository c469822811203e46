// Package pipeline is the build pipeline run by kitbuild in every environment.
package pipeline

import (
	"context"
	"errors"

	"github.com/a-peyrard/kitdi"
	"github.com/a-peyrard/kitdi/environment"
	"github.com/a-peyrard/kitdi/runner"
	"github.com/rs/zerolog"
)

// Pipeline compiles the workspace, then checks the produced artifact.
type Pipeline struct {
	compiler Compiler
	logger   zerolog.Logger

	artifact *Artifact
}

// NewPipeline is the runnable of the environment.
//
// @service as=runner.Runnable
func NewPipeline(compiler Compiler, logger zerolog.Logger) *Pipeline {
	return &Pipeline{compiler: compiler, logger: logger}
}

func (p *Pipeline) Run(ctx context.Context) error {
	return runner.Sequence(
		runner.RunnableFunc(p.compile),
		runner.RunnableFunc(p.verify),
	).Run(ctx)
}

func (p *Pipeline) compile(ctx context.Context) error {
	artifact, err := p.compiler.Compile(ctx)
	if err != nil {
		return err
	}
	p.artifact = artifact
	return nil
}

func (p *Pipeline) verify(context.Context) error {
	if len(p.artifact.Packages) == 0 {
		return errors.New("no go package found in the workspace")
	}
	p.logger.Debug().Strs("packages", p.artifact.Packages).Msg("artifact verified")
	return nil
}

// Artifact returns the artifact of the last run.
func (p *Pipeline) Artifact() *Artifact {
	return p.artifact
}

// Bootstrap registers the pipeline in an environment.
func Bootstrap(c *kitdi.Collection, _ *environment.Environment) error {
	return errors.Join(
		c.Install(&Registry{}),
		kitdi.AddFactory(c, newReporter),
	)
}
