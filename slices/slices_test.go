package slices

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	t.Run("it should keep the matching elements in order", func(t *testing.T) {
		// GIVEN
		instances := []any{strings.NewReader("a"), 42, io.NopCloser(nil), "b"}

		// WHEN
		result := Filter(instances, func(v any) bool {
			_, ok := v.(io.Reader)
			return ok
		})

		// THEN
		require.Len(t, result, 2)
		assert.Same(t, instances[0], result[0])
	})

	t.Run("it should return nil when nothing matches", func(t *testing.T) {
		// GIVEN
		input := []string{"debug", "release"}

		// WHEN
		result := Filter(input, func(s string) bool { return s == "profile" })

		// THEN
		assert.Nil(t, result)
	})
}

func TestTryMap(t *testing.T) {
	t.Run("it should map every element", func(t *testing.T) {
		// GIVEN
		input := []string{"1", "2", "3"}

		// WHEN
		result, err := TryMap(input, strconv.Atoi)

		// THEN
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, result)
	})

	t.Run("it should stop at the first failure", func(t *testing.T) {
		// GIVEN
		input := []string{"1", "two", "3"}
		calls := 0

		// WHEN
		result, err := TryMap(input, func(s string) (int, error) {
			calls++
			return strconv.Atoi(s)
		})

		// THEN
		var numErr *strconv.NumError
		require.True(t, errors.As(err, &numErr))
		assert.Nil(t, result)
		assert.Equal(t, 2, calls)
	})
}

func TestReverse(t *testing.T) {
	t.Run("it should reverse without touching the input", func(t *testing.T) {
		// GIVEN
		input := []int{1, 2, 3}

		// WHEN
		result := Reverse(input)

		// THEN
		assert.Equal(t, []int{3, 2, 1}, result)
		assert.Equal(t, []int{1, 2, 3}, input)
	})

	t.Run("it should handle empty slices", func(t *testing.T) {
		assert.Empty(t, Reverse([]int(nil)))
	})
}
