// Command kitgen writes the Register method of a kitdi registry, registering every constructor of
// the module annotated with @service.
//
// It is meant to be run by go generate, from the file declaring the registry:
//
//	//go:generate go run github.com/a-peyrard/kitdi/cmd/kitgen
//	type Registry struct {
//		kitdi.EmptyRegistry
//	}
//
// A constructor is registered as the type it returns, or as the type named by the as property:
//
//	// NewGoCompiler compiles go packages.
//	//
//	// @service as=Compiler
//	func NewGoCompiler(ws *Workspace) (*GoCompiler, error)
package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-peyrard/kitdi/logging"
	"github.com/rs/zerolog"
)

func main() {
	logger, err := logging.New(logging.Config{Level: os.Getenv("KITGEN_LOG_LEVEL")})
	if err != nil {
		logger = zerolog.New(os.Stderr)
		logger.Warn().Err(err).Msg("invalid log configuration, using defaults")
	}

	if err := run(logger, os.Getenv("DRY_RUN") == "true"); err != nil {
		logger.Error().Err(err).Msg("failed to generate the registry")
		os.Exit(1)
	}
}

func run(logger zerolog.Logger, dryRun bool) error {
	targetFile := os.Getenv("GOFILE")
	if targetFile == "" {
		return errors.New("GOFILE is not set, kitgen must be run by go generate")
	}
	currentDir, err := os.Getwd()
	if err != nil {
		return err
	}
	targetFilePath := filepath.Join(currentDir, targetFile)

	registry, services, err := scanModule(logger, findModuleRoot(currentDir), targetFilePath)
	if err != nil {
		return err
	}
	logger.Info().
		Str("registry", registry.StructName).
		Str("package", registry.ImportPath).
		Msg("registry found")

	code, err := render(registry, services)
	if err != nil {
		return err
	}

	if dryRun {
		_, err = os.Stdout.Write(code)
		return err
	}

	outputPath := filepath.Join(
		filepath.Dir(targetFilePath),
		strings.TrimSuffix(filepath.Base(targetFilePath), ".go")+"_gen.go",
	)
	if err := os.WriteFile(outputPath, code, 0o644); err != nil {
		return err
	}
	logger.Info().Str("output", outputPath).Msg("registry generated")
	return nil
}

func findModuleRoot(dir string) string {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}
