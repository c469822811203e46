package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-peyrard/kitdi/config"
	"github.com/a-peyrard/kitdi/environment"
	"github.com/rs/zerolog"
)

const outputDir = ".kitbuild"

// Workspace is the output directory of an environment.
type Workspace struct {
	Root   string
	Output string

	logger zerolog.Logger
}

// NewWorkspace creates the output directory of the environment under the configured workspace.
//
// @service
func NewWorkspace(cfg *config.Build, env *environment.Environment, logger zerolog.Logger) (*Workspace, error) {
	root, err := filepath.Abs(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	output := filepath.Join(root, outputDir, env.Name)
	if err := os.MkdirAll(output, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create the output directory %s:\n\t%w", output, err)
	}

	logger.Debug().Str("output", output).Msg("workspace ready")
	return &Workspace{Root: root, Output: output, logger: logger}, nil
}

func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Output, name)
}

func (w *Workspace) Close() error {
	w.logger.Debug().Str("output", w.Output).Msg("workspace released")
	return nil
}
