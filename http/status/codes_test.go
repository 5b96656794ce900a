package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromCodeAndReason(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s, err := FromCodeAndReason("404", "Not Found")
		require.NoError(t, err)
		require.Equal(t, NotFound, s.Code)
		require.Equal(t, "Not Found", s.Reason)
		require.Equal(t, "404 Not Found", s.String())
	})

	t.Run("custom reason", func(t *testing.T) {
		s, err := FromCodeAndReason("200", "Fine, thanks")
		require.NoError(t, err)
		require.Equal(t, OK, s.Code)
		require.Equal(t, "Fine, thanks", s.Reason)
		require.Equal(t, "OK", Text(s.Code))
	})

	t.Run("empty reason", func(t *testing.T) {
		s, err := FromCodeAndReason("204", "")
		require.NoError(t, err)
		require.Equal(t, NoContent, s.Code)
		require.Empty(t, s.Reason)
	})

	t.Run("not numeric", func(t *testing.T) {
		for _, code := range []string{"", "2x0", "OK!", "abcd", "-20"} {
			_, err := FromCodeAndReason(code, "OK")
			require.ErrorIs(t, err, ErrNotNumeric, code)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		for _, code := range []string{"099", "600", "999", "2000", "20"} {
			_, err := FromCodeAndReason(code, "OK")
			require.ErrorIs(t, err, ErrOutOfRange, code)
		}
	})
}

func TestText(t *testing.T) {
	require.Equal(t, "Not Found", Text(NotFound))
	require.Equal(t, "Request Header Fields Too Large", Text(RequestHeaderFieldsTooLarge))
	require.Empty(t, Text(299))
	require.Empty(t, Text(1000))
}
