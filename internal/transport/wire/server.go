package wire

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/transport"
	"go.uber.org/zap"
)

// Handler produces the response for one request.
type Handler func(ctx context.Context, in transport.Inbound) response.Response

type Options struct {
	// ReadTimeout bounds reading a whole request, WriteTimeout writing its
	// response. Zero means no limit.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// IdleTimeout is how long a kept-alive connection waits for the next
	// request. Zero closes the connection after every response.
	IdleTimeout time.Duration

	// MaxBodySize caps request bodies; zero means no limit.
	MaxBodySize int64

	// Recovery takes the value recovered from a panicking handler and
	// returns the response written before the connection is closed.
	Recovery func(any) response.Response
}

func defaultRecovery(any) response.Response {
	return response.Status(response.StatusInternalServerError)
}

type Server struct {
	opts    Options
	handler Handler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
}

// NewServer creates a server. A nil logger discards output.
func NewServer(handler Handler, opts Options, logger *zap.Logger) *Server {
	if opts.Recovery == nil {
		opts.Recovery = defaultRecovery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:    opts,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		conns:   map[net.Conn]struct{}{},
	}
}

// Serve accepts connections on ln until Shutdown. It returns nil once the
// server has been shut down.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	if s.closed.Load() {
		_ = ln.Close()
		return nil
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return errors.Wrap(err, "accepting connection")
		}
		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		go s.handle(conn)
	}
}

// Shutdown stops accepting, lets in-flight requests finish and closes idle
// connections. Connections still busy when ctx ends are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	for conn := range s.conns {
		// wakes connections blocked waiting for their next request
		_ = conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		s.mu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) handle(conn net.Conn) {
	defer s.untrack(conn)
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("unable to close connection", zap.Error(err))
		}
	}()

	remote := conn.RemoteAddr().String()
	br := bufio.NewReader(conn)

	for served := 0; ; served++ {
		timeout := s.opts.ReadTimeout
		if served > 0 {
			timeout = s.opts.IdleTimeout
		}
		_ = conn.SetReadDeadline(deadline(timeout))
		if s.closed.Load() {
			return
		}

		msg, err := ReadRequest(br, s.opts.MaxBodySize)
		if err == nil {
			err = validate(msg)
		}
		if err != nil {
			if quietClose(err) {
				return
			}
			s.logger.Debug("rejecting request", zap.String("remote_addr", remote), zap.Error(err))
			s.write(conn, rejection(err).SetHeader("connection", "close"), true)
			return
		}

		resp, panicked := s.dispatch(msg, remote)
		keepAlive := !panicked && msg.KeepAlive() && s.opts.IdleTimeout > 0 && !s.closed.Load()
		resp = finalize(msg, resp, keepAlive)

		if err := s.write(conn, resp, msg.Method != http.MethodHead); err != nil {
			s.logger.Debug("unable to write response to connection", zap.String("remote_addr", remote), zap.Error(err))
			return
		}
		if !keepAlive {
			return
		}
	}
}

func (s *Server) dispatch(msg *Message, remote string) (resp response.Response, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered from panic",
				zap.Any("panic", r),
				zap.String("method", msg.Method),
				zap.String("target", msg.Target),
				zap.Stack("stack"),
			)
			resp, panicked = s.opts.Recovery(r), true
		}
	}()

	u, err := url.ParseRequestURI(msg.Target)
	if err != nil {
		return response.Status(response.StatusBadRequest), false
	}
	target := msg.Target
	if u.IsAbs() {
		target = u.RequestURI()
	}
	return s.handler(s.ctx, transport.Inbound{
		Method:     msg.Method,
		Target:     target,
		Path:       u.Path,
		RawQuery:   u.RawQuery,
		Headers:    msg.Headers,
		Body:       msg.Body,
		RemoteAddr: remote,
	}), false
}

func (s *Server) write(conn net.Conn, resp response.Response, withBody bool) error {
	_ = conn.SetWriteDeadline(deadline(s.opts.WriteTimeout))

	bw := bufio.NewWriter(conn)
	rw := response.NewWriter(bw)
	if err := rw.WriteStatusLine(resp.StatusCode()); err != nil {
		return err
	}
	if err := rw.WriteHeaders(resp.Headers()); err != nil {
		return err
	}
	if body := resp.Body(); withBody && len(body) > 0 {
		if err := rw.WriteBody(body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// validate applies the checks that need the whole header block.
func validate(msg *Message) error {
	host := msg.Headers.Get("host")
	if msg.Proto == "HTTP/1.1" && (host == "" || strings.Contains(host, ",")) {
		return ErrInvalidHost
	}
	return nil
}

// quietClose reports read errors that end the connection without a reply:
// the peer went away, or it stayed idle past its deadline.
func quietClose(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func rejection(err error) response.Response {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return response.Status(response.StatusPayloadTooLarge)
	case errors.Is(err, ErrHeaderTooLarge):
		return response.Status(response.StatusRequestHeaderFieldsTooLarge)
	case errors.Is(err, ErrUnsupportedTransferEncoding):
		return response.Status(response.StatusNotImplemented)
	default:
		return response.Status(response.StatusBadRequest)
	}
}

// finalize adds the connection level headers and answers a matching
// If-None-Match with 304.
func finalize(msg *Message, resp response.Response, keepAlive bool) response.Response {
	if etag := resp.Header("etag"); etag != "" && resp.StatusCode() == response.StatusOK && matchesETag(msg.Headers.Get("if-none-match"), etag) {
		resp = resp.WithStatusCode(response.StatusNotModified).
			WithBody(nil).
			WithoutHeader("content-length").
			WithoutHeader("content-type")
	} else if !resp.Headers().Has("content-length") {
		resp = resp.WithBody(resp.Body())
	}

	resp = resp.SetHeader("date", time.Now().UTC().Format(http.TimeFormat))
	switch {
	case !keepAlive:
		resp = resp.SetHeader("connection", "close")
	case msg.Proto == "HTTP/1.0":
		resp = resp.SetHeader("connection", "keep-alive")
	}
	return resp
}

func matchesETag(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for candidate := range strings.SplitSeq(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
