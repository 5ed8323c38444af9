// Package remote exposes a console over WebSocket. Each text message from a
// client is one console line; the server answers every line with one text
// message holding whatever the line printed, possibly empty.
package remote

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/ptpconsole/internal/errors"
	"github.com/conneroisu/ptpconsole/internal/logging"
)

const (
	// Time allowed to write a reply to the peer.
	writeWait = 10 * time.Second

	// Largest line a client may send.
	maxMessageSize = 4096

	// Grace period for in-flight sessions on shutdown.
	shutdownTimeout = 5 * time.Second

	// DefaultPath is where the console endpoint is mounted.
	DefaultPath = "/console"
)

// Banner is the first message of every session.
const Banner = "Type '?' to display help!\n"

// Submitter runs a line on the console loop. *console.Console implements it.
type Submitter interface {
	Submit(ctx context.Context, line string) (string, error)
}

// Options configures a Server.
type Options struct {
	// Path the endpoint is served on; DefaultPath when empty.
	Path string
	// AllowedOrigins are host patterns accepted in the Origin header of
	// browser clients, e.g. "localhost:*". Clients that send no Origin, such
	// as ptpconsole attach, are always accepted.
	AllowedOrigins []string
}

// Server accepts remote console sessions.
type Server struct {
	sub    Submitter
	opts   Options
	logger logging.Logger
	mux    *http.ServeMux

	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	closing bool
}

// NewServer creates a server that forwards lines to sub.
func NewServer(sub Submitter, opts Options, logger logging.Logger) *Server {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		sub:    sub,
		opts:   opts,
		logger: logger.WithComponent("remote"),
		mux:    http.NewServeMux(),
		conns:  make(map[*websocket.Conn]struct{}),
	}
	s.mux.HandleFunc(opts.Path, s.handleSession)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Sessions returns the number of connected clients.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// closeSessions sends every open session a going-away close frame and waits
// up to shutdownTimeout for the handshakes before dropping the rest.
func (s *Server) closeSessions(reason string) {
	s.mu.Lock()
	s.closing = true
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conn.Close(websocket.StatusGoingAway, reason)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		for _, conn := range conns {
			_ = conn.CloseNow()
		}
	}
}

// ListenAndServe serves on addr until ctx is cancelled. Open sessions are
// closed with StatusGoingAway when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.NewNetworkError("cannot listen on "+addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// Sessions outlive ctx so that shutdown can send them a close frame.
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info(ctx, "Remote console listening", "addr", ln.Addr().String(), "path", s.opts.Path)

	select {
	case err := <-errc:
		return errors.NewNetworkError("remote console stopped", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Shutdown stops new sessions but leaves hijacked connections alone.
	err := srv.Shutdown(shutdownCtx)
	s.closeSessions("console stopped")
	if err != nil {
		return errors.NewNetworkError("remote console shutdown", err)
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.NewNetworkError("remote console stopped", err)
	}
	return nil
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.opts.AllowedOrigins,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		// Accept has already written the HTTP error.
		s.logger.Warn(r.Context(), err, "Remote session rejected", "remote_addr", r.RemoteAddr)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageSize)

	ctx := r.Context()
	logger := s.logger.With("remote_addr", r.RemoteAddr)

	if !s.track(conn) {
		conn.Close(websocket.StatusGoingAway, "console stopped")
		return
	}
	defer s.untrack(conn)

	logger.Info(ctx, "Remote session opened")
	defer logger.Info(ctx, "Remote session closed")

	if err := s.write(ctx, conn, Banner); err != nil {
		logger.Warn(ctx, err, "Remote write failed")
		return
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil && !s.isClosing() {
					logger.Warn(ctx, err, "Remote read failed")
				}
			}
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "text messages only")
			return
		}

		line := string(data)
		logger.Debug(ctx, "Remote line", "line", line)

		output, err := s.sub.Submit(ctx, line)
		if stderrors.Is(err, errors.ErrNotRunning) {
			conn.Close(websocket.StatusGoingAway, "console stopped")
			return
		}
		if err != nil && !errors.IsDispatchError(err) {
			// ctx ended while the line was queued or running
			return
		}

		if err := s.write(ctx, conn, output); err != nil {
			logger.Warn(ctx, err, "Remote write failed")
			return
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, msg string) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, []byte(msg))
}
