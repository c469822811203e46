package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a-peyrard/kitdi"
	"github.com/a-peyrard/kitdi/environment"
	"github.com/rs/zerolog"
)

const manifestFile = "manifest.json"

type (
	// Artifact summarizes a compilation.
	Artifact struct {
		Environment string        `json:"environment"`
		Packages    []string      `json:"packages"`
		Files       int           `json:"files"`
		Manifest    string        `json:"-"`
		Took        time.Duration `json:"took"`
	}

	Compiler interface {
		Name() string
		Compile(ctx context.Context) (*Artifact, error)
	}

	// GoCompiler indexes the go packages of the workspace. The reporter depends on the compiler, so
	// it is only reached through a lazy handle.
	GoCompiler struct {
		workspace *Workspace
		env       *environment.Environment
		reporter  *kitdi.Lazy[Reporter]
		logger    zerolog.Logger
	}
)

// NewGoCompiler compiles the go packages of the workspace.
//
// @service as=Compiler
func NewGoCompiler(
	workspace *Workspace,
	env *environment.Environment,
	reporter *kitdi.Lazy[Reporter],
	logger zerolog.Logger,
) *GoCompiler {
	return &GoCompiler{
		workspace: workspace,
		env:       env,
		reporter:  reporter,
		logger:    logger,
	}
}

func (c *GoCompiler) Name() string {
	return "go/" + c.env.Name
}

func (c *GoCompiler) Compile(ctx context.Context) (*Artifact, error) {
	start := time.Now()
	reporter, err := c.reporter.Value()
	if err != nil {
		return nil, err
	}

	packages := make(map[string]struct{})
	files := 0
	err = filepath.WalkDir(c.workspace.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != c.workspace.Root && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".go") && !strings.HasSuffix(d.Name(), "_test.go") {
			rel, err := filepath.Rel(c.workspace.Root, filepath.Dir(path))
			if err != nil {
				return err
			}
			packages[filepath.ToSlash(rel)] = struct{}{}
			files++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s:\n\t%w", c.workspace.Root, err)
	}

	artifact := &Artifact{
		Environment: c.env.Name,
		Packages:    sortedKeys(packages),
		Files:       files,
		Manifest:    c.workspace.Path(manifestFile),
		Took:        time.Since(start),
	}
	if err := writeManifest(artifact); err != nil {
		return nil, err
	}

	reporter.Report(c, artifact)
	return artifact, nil
}

func writeManifest(artifact *Artifact) error {
	content, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(artifact.Manifest, content, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s:\n\t%w", artifact.Manifest, err)
	}
	return nil
}
