package kitdi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration         = errors.New("invalid configuration")
	ErrNotRegistered         = errors.New("service not registered")
	ErrCyclicDependency      = errors.New("cyclic dependency")
	ErrAmbiguousConstruction = errors.New("ambiguous construction")
)

type (
	// ConfigurationError is returned at registration time, when a registration is structurally invalid.
	ConfigurationError struct {
		Key    Key
		Reason string
	}

	// NotRegisteredError is returned when nothing is registered for the requested key.
	NotRegisteredError struct {
		Key Key
	}

	// CyclicDependencyError reports the chain of keys under construction, from the first
	// occurrence of the repeated key up to the repeated key itself.
	CyclicDependencyError struct {
		Chain []Key
	}

	// AmbiguousConstructionError is returned when an implementation declares more than one constructor.
	AmbiguousConstructionError struct {
		Key            Key
		Implementation Key
		Candidates     int
	}
)

func configurationError(key Key, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Key:    key,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid registration for %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no service registered for %s", e.Key)
}

func (e *NotRegisteredError) Is(target error) bool {
	return target == ErrNotRegistered
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cycle found:\n%s", formatCycle(e.Chain))
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// Path renders the chain on a single line, e.g. "A -> B -> A".
func (e *CyclicDependencyError) Path() string {
	return strings.Join(keysToStrings(e.Chain), " -> ")
}

func (e *AmbiguousConstructionError) Error() string {
	return fmt.Sprintf(
		"implementation %s of %s declares %d constructors, expected at most one",
		e.Implementation,
		e.Key,
		e.Candidates,
	)
}

func (e *AmbiguousConstructionError) Is(target error) bool {
	return target == ErrAmbiguousConstruction
}

func formatCycle(chain []Key) string {
	var b strings.Builder
	for i, k := range chain {
		b.WriteString(strings.Repeat("\t", i))
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(k.String())
		b.WriteString("\n")
	}
	return b.String()
}
