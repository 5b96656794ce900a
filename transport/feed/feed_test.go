package feed

import (
	"io"
	"testing"
	"time"

	"github.com/indigo-web/h1parse/transport"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	t.Run("queued data", func(t *testing.T) {
		c := New()
		c.Feed([]byte("Hello, "))
		c.Feed([]byte("world!"))
		c.Close()

		data, err := c.Read()
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", string(data))

		c.Pushback(data[7:])
		data, err = c.Read()
		require.NoError(t, err)
		require.Equal(t, "world!", string(data))

		_, err = c.Read()
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("blocks until fed", func(t *testing.T) {
		c := New()
		go func() {
			time.Sleep(10 * time.Millisecond)
			c.Feed([]byte("data"))
		}()

		data, err := c.Read()
		require.NoError(t, err)
		require.Equal(t, "data", string(data))
	})

	t.Run("block survives further feeding", func(t *testing.T) {
		c := New()
		c.Feed([]byte("first"))
		data, err := c.Read()
		require.NoError(t, err)
		c.Feed([]byte("second"))
		require.Equal(t, "first", string(data))
	})

	t.Run("interrupt", func(t *testing.T) {
		c := New()
		go func() {
			time.Sleep(10 * time.Millisecond)
			transport.Interrupt(c)
		}()

		_, err := c.Read()
		require.ErrorIs(t, err, transport.ErrInterrupted)
	})
}
