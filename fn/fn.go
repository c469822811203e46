// Package fn contains small functional helpers.
package fn

// TriConsumer represents a function that accepts three input arguments and returns no result.
type TriConsumer[A any, B any, C any] func(a A, b B, c C)

// AllTriConsumer creates a tri-consumer calling all the given tri-consumers, in order.
func AllTriConsumer[A any, B any, C any](consumers ...TriConsumer[A, B, C]) TriConsumer[A, B, C] {
	return func(a A, b B, c C) {
		for _, consumer := range consumers {
			consumer(a, b, c)
		}
	}
}
