package config

import "github.com/a-peyrard/kitdi/logging"

// EnvPrefix prefixes the environment variables of Build.
const EnvPrefix = "KITBUILD"

// Build holds the settings of the build orchestrator. Each entry of Environments gets its own
// provider.
type Build struct {
	Environments []string       `mapstructure:"environments" validate:"dive,required"`
	Log          logging.Config `mapstructure:"log"`
	Parallel     bool           `mapstructure:"parallel"`
	Workspace    string         `mapstructure:"workspace"`
}

func (b *Build) ApplyDefault() {
	if len(b.Environments) == 0 {
		b.Environments = []string{"debug"}
	}
	if b.Workspace == "" {
		b.Workspace = "."
	}
}
