package pipeline

import (
	"sort"

	"github.com/a-peyrard/kitdi"
	"github.com/rs/zerolog"
)

type (
	Reporter interface {
		Report(compiler Compiler, artifact *Artifact)
	}

	LogReporter struct {
		compiler string
		logger   zerolog.Logger
	}
)

// newReporter is registered as a factory: it needs the compiler, which itself reaches the reporter
// lazily.
func newReporter(p *kitdi.Provider) (Reporter, error) {
	compiler, err := kitdi.Get[Compiler](p)
	if err != nil {
		return nil, err
	}
	logger, err := kitdi.Get[zerolog.Logger](p)
	if err != nil {
		return nil, err
	}
	return &LogReporter{compiler: compiler.Name(), logger: logger}, nil
}

func (r *LogReporter) Report(compiler Compiler, artifact *Artifact) {
	r.logger.Info().
		Str("compiler", compiler.Name()).
		Str("reporter_for", r.compiler).
		Int("packages", len(artifact.Packages)).
		Int("files", artifact.Files).
		Str("manifest", artifact.Manifest).
		Dur("took", artifact.Took).
		Msg("compilation done")
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
