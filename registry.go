package kitdi

import (
	"errors"
	"fmt"
)

type (
	// Registry registers a group of services on a collection.
	Registry interface {
		Register(c *Collection) error
	}

	// EmptyRegistry registers nothing. Embedding it in a struct marks the struct as the target of the
	// kitgen generator, which writes the Register method of the struct.
	EmptyRegistry struct{}
)

func (EmptyRegistry) Register(*Collection) error {
	return nil
}

// Install runs the registries in order, and reports all their failures.
func (c *Collection) Install(registries ...Registry) error {
	var errs []error
	for _, registry := range registries {
		if err := registry.Register(c); err != nil {
			errs = append(errs, fmt.Errorf("failed to install %T:\n\t%w", registry, err))
		}
	}
	return errors.Join(errs...)
}
