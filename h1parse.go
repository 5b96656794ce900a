// Package h1parse is an incremental HTTP/1.1 message parser. It pulls bytes from a
// transport.Client, tolerating arbitrary fragmentation of the stream, and produces a request
// or a response with its body available as a lazy stream.
//
//	client := transport.NewClient(conn, cfg.NET.ReadTimeout, make([]byte, cfg.NET.ReadBufferSize))
//	request, err := h1parse.New(cfg).ParseRequest(ctx, client)
//
// The client must be used by a single parse at a time. Bytes following the parsed message
// head (and, after draining it, the body) stay in the client, so the next message can be
// parsed from the same client.
package h1parse

import (
	"context"
	"fmt"
	"time"

	"github.com/indigo-web/h1parse/config"
	"github.com/indigo-web/h1parse/errors"
	"github.com/indigo-web/h1parse/http"
	"github.com/indigo-web/h1parse/internal/body"
	"github.com/indigo-web/h1parse/internal/chunked"
	"github.com/indigo-web/h1parse/internal/drive"
	"github.com/indigo-web/h1parse/internal/scan/headers"
	"github.com/indigo-web/h1parse/internal/scan/prelude"
	"github.com/indigo-web/h1parse/kv"
	"github.com/indigo-web/h1parse/trailer"
	"github.com/indigo-web/h1parse/transport"
	"go.uber.org/zap"
)

type Option func(*Parser)

// WithLogger sets the logger failed parses are reported to at the debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

type Parser struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New returns a parser. The config mustn't be modified afterwards. Nil config stands
// for config.Default().
func New(cfg *config.Config, opts ...Option) *Parser {
	if cfg == nil {
		cfg = config.Default()
	}

	p := &Parser{
		cfg:    cfg,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

var defaultParser = New(config.Default())

// ParseRequest parses a request with the default config.
func ParseRequest(ctx context.Context, client transport.Client) (*http.Request, error) {
	return defaultParser.ParseRequest(ctx, client)
}

// ParseResponse parses a response with the default config.
func ParseResponse(ctx context.Context, client transport.Client) (*http.Response, error) {
	return defaultParser.ParseResponse(ctx, client)
}

// ParseRequest reads the request-line and the headers. The body is read lazily via the
// returned request. Failures are reported as *errors.Error, except for read errors and
// canceled contexts, which are returned wrapped.
func (p *Parser) ParseRequest(ctx context.Context, client transport.Client) (*http.Request, error) {
	request, err := run(ctx, p.cfg.Timeout, client, func(ctx context.Context) (*http.Request, error) {
		return p.parseRequest(ctx, client)
	})
	if err != nil {
		p.logFailure("request", err)
		return nil, err
	}

	return request, nil
}

// ParseResponse reads the status-line and the headers. See ParseRequest.
func (p *Parser) ParseResponse(ctx context.Context, client transport.Client) (*http.Response, error) {
	response, err := run(ctx, p.cfg.Timeout, client, func(ctx context.Context) (*http.Response, error) {
		return p.parseResponse(ctx, client)
	})
	if err != nil {
		p.logFailure("response", err)
		return nil, err
	}

	return response, nil
}

func (p *Parser) parseRequest(ctx context.Context, client transport.Client) (*http.Request, error) {
	slot := trailer.New()
	line, err := drive.Drive(
		ctx, client, p.cfg.Headers.MaxLength, drive.Pending[prelude.RequestState]{}, prelude.ScanRequest,
	)
	if err != nil {
		return nil, err
	}

	block, err := p.headers(ctx, client)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.RequestLine = &line
		}

		return nil, err
	}

	return &http.Request{
		RequestLine: line,
		Message:     p.message(client, block, slot),
	}, nil
}

func (p *Parser) parseResponse(ctx context.Context, client transport.Client) (*http.Response, error) {
	slot := trailer.New()
	line, err := drive.Drive(
		ctx, client, p.cfg.Headers.MaxLength, drive.Pending[prelude.ResponseState]{}, prelude.ScanResponse,
	)
	if err != nil {
		return nil, err
	}

	block, err := p.headers(ctx, client)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.StatusLine = &line
		}

		return nil, err
	}

	return &http.Response{
		StatusLine: line,
		Message:    p.message(client, block, slot),
	}, nil
}

func (p *Parser) headers(ctx context.Context, client transport.Client) (headers.Block, error) {
	pending := drive.Pending[headers.State]{State: headers.NewState(p.cfg.Headers.Prealloc)}
	block, err := drive.Drive(ctx, client, p.cfg.Headers.MaxLength, pending, headers.Scan)
	if e, ok := err.(*errors.Error); ok && e.Kind == errors.EmptyStream {
		// the prelude is already received
		e.Kind = errors.UnexpectedEndOfStream
	}

	return block, err
}

// message picks the body delimitation. Transfer-Encoding: chunked takes precedence over
// Content-Length, and absence of both means an empty body.
func (p *Parser) message(client transport.Client, block headers.Block, slot *trailer.Slot) http.Message {
	hdrs := kv.NewFromPairs(block.Headers)

	if block.Chunked {
		decoder := chunked.NewDecoder(
			client, slot, p.cfg.Headers.MaxLength, p.cfg.Body.MaxSize, p.cfg.Headers.Prealloc,
		)

		return http.NewMessage(hdrs, http.NewBody(decoder, p.cfg.Body.Prealloc), http.Chunked(), slot)
	}

	fixed := body.NewFixed(client, block.ContentLength, p.cfg.Body.MaxSize)
	prealloc := int(min(block.ContentLength, uint64(p.cfg.Body.Prealloc)))

	return http.NewMessage(hdrs, http.NewBody(fixed, prealloc), http.Fixed(block.ContentLength), nil)
}

// run limits the parse by the timeout and the deadline of the context, whichever is sooner.
// When time is out, the client is interrupted and the partial result is dropped. If the
// client can't be interrupted, the parse is abandoned and keeps running in the background
// until the client returns.
func run[T any](
	ctx context.Context, timeout time.Duration, client transport.Client, parse func(context.Context) (T, error),
) (result T, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if ctx.Done() == nil {
		return parse(ctx)
	}

	type outcome struct {
		result T
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		result, err := parse(ctx)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() != nil {
			// the parse may notice the expired context before the select does
			return result, expired(ctx, o.err)
		}

		return o.result, o.err
	case <-ctx.Done():
		if transport.Interrupt(client) {
			<-done
		}

		return result, expired(ctx, ctx.Err())
	}
}

// expired translates a failure caused by the done context into the error returned to
// the caller. Unrelated errors are returned untouched.
func expired(ctx context.Context, err error) error {
	if !errors.Is(err, ctx.Err()) && !errors.Is(err, transport.ErrInterrupted) {
		return err
	}

	if ctx.Err() == context.DeadlineExceeded {
		return errors.New(errors.Timeout, ctx.Err())
	}

	return fmt.Errorf("parse: %w", ctx.Err())
}

func (p *Parser) logFailure(message string, err error) {
	ce := p.logger.Check(zap.DebugLevel, "failed to parse "+message)
	if ce == nil {
		return
	}

	e, ok := err.(*errors.Error)
	if !ok {
		ce.Write(zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.Stringer("kind", e.Kind),
		zap.String("prelude", e.Prelude()),
		zap.Int("headers", len(e.Headers)),
	}

	if e.Kind == errors.MaxLengthExceeded {
		fields = append(fields, zap.Int("size", e.Size), zap.Int("limit", e.Limit))
	}

	if e.Cause != nil {
		fields = append(fields, zap.NamedError("cause", e.Cause))
	}

	ce.Write(fields...)
}
