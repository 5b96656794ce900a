package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	t.Run("read and pushback", func(t *testing.T) {
		server, peer := net.Pipe()
		defer peer.Close()
		c := NewClient(server, time.Second, make([]byte, 16))

		go func() {
			_, _ = peer.Write([]byte("Hello, world!"))
			_ = peer.Close()
		}()

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

	t.Run("interrupt", func(t *testing.T) {
		server, peer := net.Pipe()
		defer peer.Close()
		c := NewClient(server, 0, make([]byte, 16))

		result := make(chan error, 1)
		go func() {
			_, err := c.Read()
			result <- err
		}()

		time.Sleep(10 * time.Millisecond)
		require.True(t, Interrupt(c))

		select {
		case err := <-result:
			require.True(t, errors.Is(err, os.ErrDeadlineExceeded))
		case <-time.After(time.Second):
			require.Fail(t, "read wasn't interrupted")
		}
	})
}
