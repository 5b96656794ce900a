// Package inspect implements a server, which parses every request it receives and answers
// with a JSON description of what was parsed. Connections are served by an event loop,
// while the parsing itself runs in a pool of goroutines, fed with the received data.
package inspect

import (
	"context"
	"fmt"
	"time"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/h1parse"
	"github.com/indigo-web/h1parse/config"
	"github.com/indigo-web/h1parse/http/status"
	"github.com/indigo-web/h1parse/transport/feed"
	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPoolSize        = 1024
	defaultShutdownTimeout = 5 * time.Second
)

type Option func(*Server)

// WithPoolSize limits the number of connections served at the same time.
func WithPoolSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.poolSize = n
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

func WithMulticore(flag bool) Option {
	return func(s *Server) {
		s.multicore = flag
	}
}

type bufferPool interface {
	Get() *bytebufferpool.ByteBuffer
	Put(*bytebufferpool.ByteBuffer)
}

type Server struct {
	gnet.BuiltinEventEngine

	cfg             *config.Config
	parser          *h1parse.Parser
	logger          *zap.Logger
	bufPool         bufferPool
	pool            *ants.Pool
	poolSize        int
	shutdownTimeout time.Duration
	multicore       bool
	engine          gnet.Engine
	booted          chan struct{}
}

func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:             cfg,
		parser:          h1parse.New(cfg, h1parse.WithLogger(logger)),
		logger:          logger,
		bufPool:         new(bytebufferpool.Pool),
		poolSize:        defaultPoolSize,
		shutdownTimeout: defaultShutdownTimeout,
		booted:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run serves the address, e.g. tcp://:8080, until the context is done.
func (s *Server) Run(ctx context.Context, addr string) (err error) {
	// submitting must never block the event loop
	s.pool, err = ants.NewPool(s.poolSize, ants.WithNonblocking(true))
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gnet.Run(s, addr,
			gnet.WithMulticore(s.multicore),
			gnet.WithReadBufferCap(s.cfg.NET.ReadBufferSize),
			gnet.WithLogger(s.logger.Sugar()),
		)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() == nil {
			// the engine has failed by itself
			return nil
		}

		select {
		case <-s.booted:
		default:
			return nil
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		return s.engine.Stop(stopCtx)
	})

	err = g.Wait()
	s.logger.Info("inspect: stopped", zap.Error(err))

	return multierr.Combine(err, s.pool.ReleaseTimeout(s.shutdownTimeout))
}

func (s *Server) OnBoot(engine gnet.Engine) gnet.Action {
	s.engine = engine
	close(s.booted)
	s.logger.Info("inspect: listening")

	return gnet.None
}

// connection is the state of a single connection, shared between the event loop and
// the goroutine serving it.
type connection struct {
	id   string
	feed *feed.Client
}

func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	conn := &connection{
		id:   uniuri.New(),
		feed: feed.New(),
	}
	c.SetContext(conn)

	if err := s.pool.Submit(func() { s.serve(c, conn) }); err != nil {
		s.logger.Warn("inspect: cannot serve connection", zap.Error(err))
		return nil, gnet.Close
	}

	return nil, gnet.None
}

func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	conn, ok := c.Context().(*connection)
	if !ok {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		return gnet.Close
	}

	conn.feed.Feed(data)

	return gnet.None
}

func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	if conn, ok := c.Context().(*connection); ok {
		conn.feed.Close()
	}

	return gnet.None
}

// peer is the part of gnet.Conn, which is safe to be used outside the event loop.
type peer interface {
	AsyncWrite(buf []byte, callback gnet.AsyncCallback) error
	Close() error
}

// serve parses requests one by one, until the connection is closed or a request fails.
func (s *Server) serve(p peer, conn *connection) {
	logger := s.logger.With(zap.String("conn", conn.id))
	ctx := context.Background()

	for seq := 0; ; seq++ {
		request, err := s.parser.ParseRequest(ctx, conn.feed)
		if err != nil {
			s.fail(p, logger, err)
			return
		}

		description, err := describe(ctx, request)
		if err != nil {
			s.fail(p, logger, err)
			return
		}

		description.Conn, description.Seq = conn.id, seq
		body, err := description.JSON()
		if err != nil {
			logger.Error("inspect: cannot render description", zap.Error(err))
			s.respond(p, status.InternalServerError, "text/plain", []byte(err.Error()), true)
			return
		}

		logger.Debug("inspect: request",
			zap.String("method", description.Method),
			zap.String("target", description.Target),
			zap.Int("headers", len(description.Headers)),
			zap.Int("body", description.Body.Length),
		)

		if err = s.respond(p, status.OK, "application/json", body, false); err != nil {
			logger.Debug("inspect: cannot respond", zap.Error(err))
			return
		}
	}
}

func (s *Server) fail(p peer, logger *zap.Logger, err error) {
	code := statusOf(err)
	if code == 0 {
		logger.Debug("inspect: connection is done", zap.Error(err))
		_ = p.Close()
		return
	}

	logger.Info("inspect: bad request", zap.Error(err), zap.Uint16("status", uint16(code)))
	_ = s.respond(p, code, "text/plain", []byte(err.Error()), true)
}

func (s *Server) respond(p peer, code status.Code, contentType string, body []byte, closeConn bool) error {
	buf := s.bufPool.Get()
	render(buf, code, contentType, body, closeConn)

	err := p.AsyncWrite(buf.B, func(c gnet.Conn, err error) error {
		s.bufPool.Put(buf)
		if closeConn {
			return p.Close()
		}

		return nil
	})
	if err != nil {
		// the callback is never invoked if the write wasn't queued
		s.bufPool.Put(buf)
		_ = p.Close()
	}

	return err
}
