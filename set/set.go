// Package set contains a minimal generic set, backed by a map.
package set

// Set holds unique comparable values.
type Set[T comparable] map[T]struct{}

func New[T comparable]() Set[T] {
	return make(Set[T])
}

// NewFromSlice creates a set holding the elements of the slice, duplicates are dropped.
func NewFromSlice[T comparable](slice []T) Set[T] {
	var s Set[T] = make(map[T]struct{}, len(slice))
	for _, elem := range slice {
		s.Add(elem)
	}
	return s
}

func (s Set[T]) Add(value T) {
	s[value] = struct{}{}
}

func (s Set[T]) Contains(value T) bool {
	_, exists := s[value]
	return exists
}

func (s Set[T]) Remove(value T) {
	delete(s, value)
}

func (s Set[T]) Size() int {
	return len(s)
}
