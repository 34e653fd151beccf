// Package server implements a reference RNDC v1 control-channel
// listener: a worked example of the server-side deployment spec.md §1
// and §2 say the session core must support, used here for integration
// testing rather than as a drop-in replacement for BIND's named.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	rndcmetrics "github.com/b1-systems/rndc-go/internal/metrics"
	"github.com/b1-systems/rndc-go/internal/rndc"
)

// readBufferSize is the size of a single read from an accepted
// connection, matching internal/client's read granularity.
const readBufferSize = 4096

// acceptRetryDelay is how long Serve backs off after a transient Accept
// error before retrying.
const acceptRetryDelay = 100 * time.Millisecond

// Config holds the parameters a Server needs: the listen address, the
// HMAC key shared with clients, and the handler that turns a received
// command into a result. The core itself is opaque to command
// semantics (spec.md §1); Handler is the one hook this reference server
// supplies.
type Config struct {
	// Addr is the TCP address to listen on, e.g. ":953".
	Addr string

	// Key is the Base64-encoded HMAC-MD5 secret shared with clients.
	Key string

	// Handler produces the result text for a received command.
	Handler rndc.CommandHandler

	// Logger receives per-connection diagnostics. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger

	// Metrics, if non-nil, records handshake outcome counters and
	// latency under the "server" role label.
	Metrics *rndcmetrics.Collector
}

// Server accepts TCP connections and drives one rndc.Session per
// connection in the server role.
type Server struct {
	cfg Config
}

// New constructs a Server from cfg, filling in a default logger if none
// was supplied.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg}
}

// Serve listens on s.cfg.Addr and accepts connections until ctx is
// canceled, handling each on its own goroutine. It returns nil when ctx
// cancellation caused the listener to close, or the first non-transient
// Accept error otherwise.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("rndc server: listen %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener runs the accept loop against an already-bound listener,
// split out from Serve so callers -- and tests -- that need to bind an
// ephemeral port themselves (net.Listen("tcp", "127.0.0.1:0")) can do so
// before Serve would otherwise pick one.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				time.Sleep(acceptRetryDelay)
				continue
			}
			return fmt.Errorf("rndc server: accept: %w", err)
		}
		go s.handle(conn)
	}
}

// handle drives one rndc.Session in the server role against conn until
// it reaches a terminal event, then closes conn.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close() //nolint:errcheck // best-effort close after the exchange completes.

	logger := s.cfg.Logger.With(slog.String("peer", conn.RemoteAddr().String()))
	start := time.Now()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncStarted("server")
	}

	cmd, err := s.pump(conn)

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ObserveDuration("server", time.Since(start))
		if err != nil {
			s.cfg.Metrics.IncFailed("server")
			if errors.Is(err, rndc.ErrBadSignature) || errors.Is(err, rndc.ErrNonceMismatch) {
				s.cfg.Metrics.IncAuthFailures("server")
			}
		} else {
			s.cfg.Metrics.IncSucceeded("server")
		}
	}

	if err != nil {
		logger.Warn("rndc handshake failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("rndc command handled", slog.String("command", cmd))
}

// pump drives a server-role rndc.Session against conn: on WantWrite it
// writes the bytes and calls Next(nil); on WantRead it reads up to
// readBufferSize bytes and calls Next(buf); on WantFinish it reports the
// command that was executed; on WantError it returns the wrapped error.
func (s *Server) pump(conn net.Conn) (string, error) {
	sess, err := rndc.NewServerSession(s.cfg.Key, s.cfg.Handler)
	if err != nil {
		return "", fmt.Errorf("rndc server: %w", err)
	}

	ev, err := sess.Start()
	if err != nil {
		return "", fmt.Errorf("rndc server: start: %w", err)
	}

	for {
		switch ev.Kind {
		case rndc.WantWrite:
			if _, werr := conn.Write(ev.Write); werr != nil {
				return "", fmt.Errorf("rndc server: write: %w", werr)
			}
			ev, err = sess.Next(nil)

		case rndc.WantRead:
			buf := make([]byte, readBufferSize)
			n, rerr := conn.Read(buf)
			if rerr != nil && n == 0 {
				return "", fmt.Errorf("rndc server: read: %w", rerr)
			}
			ev, err = sess.Next(buf[:n])

		case rndc.WantFinish:
			return sess.Command(), nil

		case rndc.WantError:
			return "", fmt.Errorf("rndc server: %w", ev.Err)

		default:
			return "", fmt.Errorf("rndc server: unexpected event kind %v", ev.Kind)
		}
		if err != nil {
			return "", fmt.Errorf("rndc server: %w", err)
		}
	}
}
