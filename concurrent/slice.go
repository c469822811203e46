// Package concurrent contains goroutine safe containers, mostly used to collect results in tests.
package concurrent

import "sync"

// Slice is an append-only slice guarded by a RWMutex.
type Slice[T any] struct {
	mu    sync.RWMutex
	inner []T
}

func NewSlice[T any]() *Slice[T] {
	return &Slice[T]{inner: make([]T, 0)}
}

func (s *Slice[T]) Append(values ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner = append(s.inner, values...)
}

// Get returns a copy of the elements.
func (s *Slice[T]) Get() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, len(s.inner))
	copy(result, s.inner)
	return result
}

// GetAt returns the i-th element, it panics when out of range.
func (s *Slice[T]) GetAt(i int) T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner[i]
}

func (s *Slice[T]) Length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inner)
}
