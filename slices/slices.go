// Package slices holds the generic slice helpers missing from the standard library.
package slices

// Filter returns a new slice containing only the elements for which the predicate function returns true.
func Filter[T any](slice []T, predicate func(T) bool) []T {
	var result []T
	for _, item := range slice {
		if predicate(item) {
			result = append(result, item)
		}
	}
	return result
}

// TryMap maps the values of a slice using a mapper that can fail, the first failure stops the
// mapping and is returned.
func TryMap[F any, T any](original []F, mapper func(F) (T, error)) ([]T, error) {
	destination := make([]T, len(original))
	for i, item := range original {
		var err error
		if destination[i], err = mapper(item); err != nil {
			return nil, err
		}
	}
	return destination, nil
}

// Reverse returns a reversed copy of the slice.
func Reverse[T any](slice []T) []T {
	reversed := make([]T, len(slice))
	for i, item := range slice {
		reversed[len(slice)-1-i] = item
	}
	return reversed
}
