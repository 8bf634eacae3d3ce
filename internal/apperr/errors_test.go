package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Parallel()

	t.Run("New skips nil errors", func(t *testing.T) {
		t.Parallel()

		e := New("save failed", errors.New("one"), nil, errors.New("two"))
		assert.Equal(t, "save failed", e.Message)
		assert.Equal(t, []string{"one", "two"}, e.Messages())
	})

	t.Run("Error is JSON", func(t *testing.T) {
		t.Parallel()

		got := New("bad request", errors.New("title is required")).Error()
		assert.JSONEq(t, `{"message":"bad request","err":["title is required"]}`, got)
	})

	t.Run("Unwrap", func(t *testing.T) {
		t.Parallel()

		unwrapped := New("x", errors.New("inner")).Unwrap()
		require.Error(t, unwrapped)
		assert.Contains(t, unwrapped.Error(), "inner")

		var nilErr *Error
		require.NoError(t, nilErr.Unwrap())
		require.NoError(t, New("empty").Unwrap())
	})
}
