// Package config loads typed configuration structs from the environment.
//
// Every leaf field of the struct is bound to an environment variable named after its path, in
// screaming snake case, behind an optional prefix: with the prefix KITBUILD, the field Log.Level
// reads KITBUILD_LOG_LEVEL. Nested struct pointers are always allocated, and any struct of the tree
// implementing WithDefault gets a chance to fill its blanks once the values are bound.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/a-peyrard/kitdi/fn"
	"github.com/a-peyrard/kitdi/option"
	"github.com/a-peyrard/kitdi/reflectutils"
	"github.com/a-peyrard/kitdi/str"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Option = option.Option[Options]

	Options struct {
		prefix   string
		envFiles []string
	}

	// WithDefault is implemented by configuration structs having default values.
	WithDefault interface {
		ApplyDefault()
	}
)

var withDefaultType = reflect.TypeOf((*WithDefault)(nil)).Elem()

// WithEnvPrefix sets the prefix of every bound environment variable.
func WithEnvPrefix(prefix string) Option {
	return func(opts *Options) {
		opts.prefix = prefix
	}
}

// WithEnvFile loads a dotenv file before binding. Variables already set in the environment win
// over the ones of the file.
func WithEnvFile(path string) Option {
	return func(opts *Options) {
		opts.envFiles = append(opts.envFiles, path)
	}
}

// Load builds a T from the environment, applies the defaults, then validates it.
func Load[T any](opts ...Option) (*T, error) {
	options := option.Build(&Options{}, opts...)

	if len(options.envFiles) > 0 {
		if err := godotenv.Load(options.envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env files %v:\n\t%w", options.envFiles, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var vT T
	typ := reflect.TypeOf(vT)
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unable to load config into %v, a struct is expected", typ)
	}
	if err := bindEnvs(v, options.prefix, typ, map[string]string{}); err != nil {
		return nil, fmt.Errorf("failed to bind env variables:\n\t%w", err)
	}

	if err := v.Unmarshal(&vT); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	reflectutils.WalkStruct(
		&vT,
		fn.AllTriConsumer(
			reflectutils.CreateNilStructs,
			callApplyDefault,
		),
	)

	if err := Validate(&vT); err != nil {
		return nil, err
	}

	return &vT, nil
}

func callApplyDefault(val reflect.Value, typ reflect.Type, _ []string) {
	switch {
	case typ.Kind() == reflect.Pointer && typ.Implements(withDefaultType):
		if val.IsValid() && !val.IsNil() {
			val.Interface().(WithDefault).ApplyDefault()
		}
	case typ.Kind() == reflect.Struct && val.CanAddr() && reflect.PointerTo(typ).Implements(withDefaultType):
		val.Addr().Interface().(WithDefault).ApplyDefault()
	}
}

// bindEnvs binds every leaf field to its env variable, bound maps the env variables to the keys
// already using them.
func bindEnvs(v *viper.Viper, envPrefix string, typ reflect.Type, bound map[string]string, parts ...string) error {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("mapstructure"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}

		fieldType := field.Type
		if fieldType.Kind() == reflect.Pointer {
			fieldType = fieldType.Elem()
		}
		path := append(parts[:len(parts):len(parts)], name)
		if fieldType.Kind() == reflect.Struct {
			if err := bindEnvs(v, envPrefix, fieldType, bound, path...); err != nil {
				return err
			}
			continue
		}

		envParts := make([]string, 0, len(path)+1)
		if envPrefix != "" {
			envParts = append(envParts, strings.ToUpper(envPrefix))
		}
		for _, part := range path {
			envParts = append(envParts, str.ToScreamingSnakeCase(part))
		}
		key, env := strings.Join(path, "."), strings.Join(envParts, "_")
		if other, found := bound[env]; found {
			return fmt.Errorf("env %s is bound to both %s and %s", env, other, key)
		}
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s to env %s: %w", key, env, err)
		}
		bound[env] = key
	}
	return nil
}
