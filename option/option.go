// Package option holds the functional options helper shared by the toolkit packages.
package option

// Option mutates the options struct T.
type Option[T any] func(opts *T)

// Build applies opts in order on defaults and returns it, so the last option wins.
func Build[T any](defaults *T, opts ...Option[T]) *T {
	for _, opt := range opts {
		if opt != nil {
			opt(defaults)
		}
	}
	return defaults
}
