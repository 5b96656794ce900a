package h1parse

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/h1parse/config"
	"github.com/indigo-web/h1parse/errors"
	"github.com/indigo-web/h1parse/http"
	"github.com/indigo-web/h1parse/http/method"
	"github.com/indigo-web/h1parse/http/proto"
	"github.com/indigo-web/h1parse/http/status"
	"github.com/indigo-web/h1parse/internal/httptest"
	"github.com/indigo-web/h1parse/kv"
	"github.com/indigo-web/h1parse/transport"
	"github.com/indigo-web/h1parse/transport/dummy"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func splitIntoParts(req []byte, n int) (parts [][]byte) {
	for i := 0; i < len(req); i += n {
		end := i + n
		if end > len(req) {
			end = len(req)
		}

		parts = append(parts, req[i:end])
	}

	return parts
}

// splitRandomly cuts the data at random positions.
func splitRandomly(data []byte, rnd *rand.Rand) (parts [][]byte) {
	for len(data) > 0 {
		n := 1 + rnd.IntN(len(data))
		parts = append(parts, data[:n])
		data = data[n:]
	}

	return parts
}

func feedPartially(p *Parser, raw []byte, n int) (*http.Request, *dummy.Client, error) {
	client := dummy.NewMockClient(splitIntoParts(raw, n)...)
	request, err := p.ParseRequest(context.Background(), client)
	return request, client, err
}

func pairs(storage *kv.Storage) []kv.Pair {
	return storage.Expose()
}

func TestParseRequest(t *testing.T) {
	const simple = "GET /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhello"

	t.Run("fixed body", func(t *testing.T) {
		for n := 1; n <= len(simple)+len("GARBAGE"); n++ {
			request, client, err := feedPartially(New(nil), []byte(simple+"GARBAGE"), n)
			require.NoError(t, err, n)
			require.Equal(t, method.GET, request.Method, n)
			require.Equal(t, "/x", request.Target.Path, n)
			require.Equal(t, proto.HTTP11, request.Proto, n)
			require.Equal(t, []kv.Pair{{"Host", "h"}, {"Content-Length", "5"}}, pairs(request.Headers), n)
			require.Equal(t, http.Fixed(5), request.Delimitation, n)

			body, err := request.Body.String()
			require.NoError(t, err, n)
			require.Equal(t, "hello", body, n)
			require.Equal(t, "GARBAGE", client.Rest(), n)
		}
	})

	t.Run("resumption equivalence", func(t *testing.T) {
		raw := []byte(
			"POST /upload?name=file HTTP/1.0\r\n" +
				"Host: example.com\r\nX-Id: " + uniuri.New() + "\r\nX-Id: " + uniuri.New() + "\r\n" +
				"Content-Length: 3\r\n\r\nabcrest",
		)

		whole, wholeClient, err := feedPartially(New(nil), raw, len(raw))
		require.NoError(t, err)

		rnd := rand.New(rand.NewPCG(42, 1337))
		for i := 0; i < 200; i++ {
			client := dummy.NewMockClient(splitRandomly(raw, rnd)...)
			request, err := New(nil).ParseRequest(context.Background(), client)
			require.NoError(t, err)
			require.Equal(t, whole.RequestLine, request.RequestLine)
			require.Equal(t, pairs(whole.Headers), pairs(request.Headers))
			require.Equal(t, whole.Delimitation, request.Delimitation)
			require.Equal(t, wholeClient.Rest(), client.Rest())
		}
	})

	t.Run("order and duplicates", func(t *testing.T) {
		request, _, err := feedPartially(New(nil), []byte("GET / HTTP/1.1\r\nA: 1\r\nB: 2\r\nA: 3\r\n\r\n"), 4)
		require.NoError(t, err)
		require.Equal(t, []kv.Pair{{"A", "1"}, {"B", "2"}, {"A", "3"}}, pairs(request.Headers))
	})

	t.Run("delimitation precedence", func(t *testing.T) {
		tcs := []struct {
			Headers string
			Want    http.Delimitation
		}{
			{"Transfer-Encoding: chunked\r\nContent-Length: 10\r\n", http.Chunked()},
			{"Content-Length: 10\r\nTransfer-Encoding: chunked\r\n", http.Chunked()},
			{"Content-Length: 10\r\n", http.Fixed(10)},
			{"Host: x\r\n", http.Fixed(0)},
		}

		for _, tc := range tcs {
			request, _, err := feedPartially(New(nil), []byte("POST / HTTP/1.1\r\n"+tc.Headers+"\r\n"), 5)
			require.NoError(t, err, tc.Headers)
			require.Equal(t, tc.Want, request.Delimitation, tc.Headers)
		}
	})

	t.Run("chunked body with trailers", func(t *testing.T) {
		payload := strings.Repeat("Hello, world! ", 30)
		encoded := httptest.EncodeChunked(payload, 17, kv.Pair{Key: "Checksum", Value: "12345"})
		raw := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\nTrailer: Checksum\r\n\r\n" + encoded
		reference, err := httptest.DecodeChunked(encoded, true)
		require.NoError(t, err)

		for _, n := range []int{1, 3, 16, 100, len(raw)} {
			request, _, err := feedPartially(New(nil), []byte(raw), n)
			require.NoError(t, err, n)
			require.True(t, request.Delimitation.IsChunked(), n)
			require.NotNil(t, request.Trailer(), n)

			_, _, ready := request.Trailer().Peek()
			require.False(t, ready, n)

			body, err := request.Body.Bytes()
			require.NoError(t, err, n)
			require.Equal(t, reference, string(body), n)

			trailers, err := request.Trailers(context.Background())
			require.NoError(t, err, n)
			require.Equal(t, "12345", trailers.Value("Checksum"), n)
		}
	})

	t.Run("trailers are awaited concurrently", func(t *testing.T) {
		raw := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
			httptest.EncodeChunked("data", 2, kv.Pair{Key: "A", Value: "b"})
		request, _, err := feedPartially(New(nil), []byte(raw), 8)
		require.NoError(t, err)

		result := make(chan string, 1)
		go func() {
			trailers, err := request.Trailers(context.Background())
			if err != nil {
				result <- err.Error()
				return
			}

			result <- trailers.Value("A")
		}()

		require.NoError(t, request.Body.Discard())
		require.Equal(t, "b", <-result)
	})

	t.Run("no trailers for fixed bodies", func(t *testing.T) {
		request, _, err := feedPartially(New(nil), []byte(simple), 8)
		require.NoError(t, err)
		require.Nil(t, request.Trailer())

		trailers, err := request.Trailers(context.Background())
		require.NoError(t, err)
		require.True(t, trailers.Empty())
	})

	t.Run("pipelining", func(t *testing.T) {
		raw := simple + "GET /second HTTP/1.1\r\n\r\n"
		client := dummy.NewMockClient(splitIntoParts([]byte(raw), 6)...)
		p := New(nil)

		first, err := p.ParseRequest(context.Background(), client)
		require.NoError(t, err)
		require.NoError(t, first.Body.Discard())

		second, err := p.ParseRequest(context.Background(), client)
		require.NoError(t, err)
		require.Equal(t, "/second", second.Target.Path)
		require.Equal(t, "GET /second HTTP/1.1\r\n\r\n", httptest.Dump(second))

		_, err = p.ParseRequest(context.Background(), client)
		require.ErrorIs(t, err, errors.EmptyStream)
	})

	t.Run("empty stream", func(t *testing.T) {
		_, err := ParseRequest(context.Background(), dummy.NewMockClient())
		require.ErrorIs(t, err, errors.EmptyStream)
		require.NotErrorIs(t, err, errors.UnexpectedEndOfStream)
	})

	t.Run("stream ends in the prelude", func(t *testing.T) {
		_, err := ParseRequest(context.Background(), dummy.NewMockClient([]byte("GET /\r")))
		require.ErrorIs(t, err, errors.UnexpectedEndOfStream)

		var e *errors.Error
		require.ErrorAs(t, err, &e)
		require.NotNil(t, e.RequestLine)
		require.Equal(t, method.GET, e.RequestLine.Method)
		require.Empty(t, e.RequestLine.Target.Raw)
		require.Equal(t, proto.Unknown, e.RequestLine.Proto)
	})

	t.Run("stream ends in the headers", func(t *testing.T) {
		for _, raw := range []string{"GET / HTTP/1.1\r\n", "GET / HTTP/1.1\r\nHost: x\r\n"} {
			_, err := ParseRequest(context.Background(), dummy.NewMockClient([]byte(raw)))
			require.ErrorIs(t, err, errors.UnexpectedEndOfStream, raw)

			var e *errors.Error
			require.ErrorAs(t, err, &e)
			require.Equal(t, "GET / HTTP/1.1", e.Prelude())
		}
	})

	t.Run("budget", func(t *testing.T) {
		cfg := config.Default()
		cfg.Headers.MaxLength = 64
		p := New(cfg)

		longPath := "GET /" + strings.Repeat("a", 100) + " HTTP/1.1\r\n\r\n"
		longHeader := "GET / HTTP/1.1\r\nX: " + strings.Repeat("b", 100) + "\r\n\r\n"
		manyHeaders := "GET / HTTP/1.1\r\n" + strings.Repeat("A: b\r\n", 20) + "\r\n"
		badHeaderPastLimit := "GET / HTTP/1.1\r\nX: " + strings.Repeat("b", 100) + "\r\nContent-Length: x\r\n\r\n"
		badLinePastLimit := "GET /" + strings.Repeat("a", 100) + "\nfoo HTTP/1.1\r\n\r\n"

		for _, raw := range []string{longPath, longHeader, manyHeaders, badHeaderPastLimit, badLinePastLimit} {
			for _, n := range []int{1, 7, 64, len(raw)} {
				_, _, err := feedPartially(p, []byte(raw), n)
				require.ErrorIs(t, err, errors.MaxLengthExceeded, n)
				require.Equal(t, errors.MaxLengthExceeded, errors.KindOf(err), n)
			}
		}

		// both sections are limited separately
		fits := "GET /" + strings.Repeat("a", 40) + " HTTP/1.1\r\n" + strings.Repeat("A: b\r\n", 8) + "\r\n"
		_, _, err := feedPartially(p, []byte(fits), 5)
		require.NoError(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, _, err := feedPartially(New(nil), []byte("GET / HTTP/1.1\r\nContent-Length: x\r\n\r\n"), 3)
		require.ErrorIs(t, err, errors.MalformedHeaderBlock)

		var e *errors.Error
		require.ErrorAs(t, err, &e)
		require.Equal(t, method.GET, e.RequestLine.Method)

		_, _, err = feedPartially(New(nil), []byte("GET / HTTP/1.2\r\n\r\n"), 3)
		require.ErrorIs(t, err, errors.MalformedPrelude)
	})

	t.Run("body too large", func(t *testing.T) {
		cfg := config.Default()
		cfg.Body.MaxSize = 4
		request, _, err := feedPartially(New(cfg), []byte(simple), 3)
		require.NoError(t, err)

		_, err = request.Body.Bytes()
		require.ErrorIs(t, err, errors.ErrBodyTooLarge)
	})

	t.Run("truncated body", func(t *testing.T) {
		request, _, err := feedPartially(New(nil), []byte(simple[:len(simple)-2]), 3)
		require.NoError(t, err)

		_, err = request.Body.Bytes()
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("no headers", func(t *testing.T) {
		raw := []byte("HTTP/1.1 404 Not Found\r\n\r\n")
		for n := 1; n <= len(raw); n++ {
			client := dummy.NewMockClient(splitIntoParts(raw, n)...)
			response, err := ParseResponse(context.Background(), client)
			require.NoError(t, err, n)
			require.Equal(t, status.NotFound, response.Status.Code, n)
			require.Equal(t, "Not Found", response.Status.Reason, n)
			require.True(t, response.Headers.Empty(), n)
			require.Equal(t, http.Fixed(0), response.Delimitation, n)

			body, err := response.Body.Bytes()
			require.NoError(t, err, n)
			require.Empty(t, body, n)
		}
	})

	t.Run("with body", func(t *testing.T) {
		raw := "HTTP/1.0 200 OK\r\nContent-Type: application/json\r\nContent-Length: 17\r\n\r\n{\"hello\":\"world\"}"
		client := dummy.NewMockClient(splitIntoParts([]byte(raw), 10)...)
		response, err := ParseResponse(context.Background(), client)
		require.NoError(t, err)
		require.Equal(t, proto.HTTP10, response.Proto)
		require.Equal(t, "HTTP/1.0 200 OK\r\nContent-Type: application/json\r\nContent-Length: 17\r\n\r\n",
			httptest.DumpResponse(response))

		var model struct {
			Hello string `json:"hello"`
		}
		require.NoError(t, response.Body.JSON(&model))
		require.Equal(t, "world", model.Hello)
	})

	t.Run("stream ends in the headers", func(t *testing.T) {
		_, err := ParseResponse(context.Background(), dummy.NewMockClient([]byte("HTTP/1.1 200 OK\r\n")))
		require.ErrorIs(t, err, errors.UnexpectedEndOfStream)

		var e *errors.Error
		require.ErrorAs(t, err, &e)
		require.Equal(t, "HTTP/1.1 200 OK", e.Prelude())
	})

	t.Run("bad status", func(t *testing.T) {
		_, err := ParseResponse(context.Background(), dummy.NewMockClient([]byte("HTTP/1.1 999 Wat\r\n\r\n")))
		require.ErrorIs(t, err, errors.MalformedPrelude)
		require.ErrorIs(t, err, status.ErrOutOfRange)
	})
}

func TestTimeout(t *testing.T) {
	t.Run("config timeout", func(t *testing.T) {
		cfg := config.Default()
		cfg.Timeout = 20 * time.Millisecond
		client := dummy.NewStallClient([]byte("GET / HTTP/1.1\r\nHost"))

		_, err := New(cfg).ParseRequest(context.Background(), client)
		require.ErrorIs(t, err, errors.Timeout)
		require.True(t, client.Interrupted())
	})

	t.Run("context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		client := dummy.NewStallClient([]byte("HTTP/1.1 200"))

		_, err := ParseResponse(ctx, client)
		require.ErrorIs(t, err, errors.Timeout)
		require.True(t, client.Interrupted())
	})

	t.Run("caller cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		client := dummy.NewStallClient(nil)
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := ParseRequest(ctx, client)
		require.ErrorIs(t, err, context.Canceled)
		require.NotErrorIs(t, err, errors.Timeout)
	})

	t.Run("parse notices the deadline first", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		parse := func(ctx context.Context) (int, error) {
			return 0, ctx.Err()
		}

		for i := 0; i < 100; i++ {
			_, err := run(ctx, 0, dummy.NewMockClient(), parse)
			require.Equal(t, errors.Timeout, errors.KindOf(err), i)
		}
	})

	t.Run("expired", func(t *testing.T) {
		deadline, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		canceled, cancel := context.WithCancel(context.Background())
		cancel()

		require.Equal(t, errors.Timeout, errors.KindOf(expired(deadline, context.DeadlineExceeded)))
		require.Equal(t, errors.Timeout, errors.KindOf(expired(deadline, fmt.Errorf("read: %w", transport.ErrInterrupted))))
		require.ErrorIs(t, expired(canceled, context.Canceled), context.Canceled)
		require.NotErrorIs(t, expired(canceled, context.Canceled), errors.Timeout)

		malformed := errors.New(errors.MalformedPrelude, nil)
		require.Same(t, malformed, expired(deadline, malformed))
	})

	t.Run("in time", func(t *testing.T) {
		cfg := config.Default()
		cfg.Timeout = time.Second
		client := dummy.NewMockClient([]byte("GET / HTTP/1.1\r\n\r\n"))

		request, err := New(cfg).ParseRequest(context.Background(), client)
		require.NoError(t, err)
		require.Equal(t, method.GET, request.Method)
	})
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := config.Default()
	cfg.Headers.MaxLength = 16
	p := New(cfg, WithLogger(zap.New(core)))

	_, err := p.ParseRequest(context.Background(), dummy.NewMockClient([]byte("GET / HTTP/1.1\r\nHost: "+uniuri.New()+"\r\n\r\n")))
	require.ErrorIs(t, err, errors.MaxLengthExceeded)

	entries := logs.FilterMessage("failed to parse request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "max length exceeded", fields["kind"])
	require.Equal(t, "GET / HTTP/1.1", fields["prelude"])
	require.EqualValues(t, 16, fields["limit"])
}
