// Package client implements the synchronous TCP wrapper around the RNDC
// v1 session core: the external collaborator spec.md §4.3 describes but
// does not specify further than "opens a socket, pumps bytes through the
// session, returns a result string."
package client

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	rndcmetrics "github.com/b1-systems/rndc-go/internal/metrics"
	"github.com/b1-systems/rndc-go/internal/rndc"
)

// DefaultPort is BIND's traditional RNDC control channel port.
const DefaultPort = 953

// readBufferSize is the size of a single read from the control channel.
// RNDC responses are short, human-readable text; a single 4096-byte read
// per want-read event is sufficient for every packet BIND emits in
// practice, matching the reference wrapper's behavior.
const readBufferSize = 4096

// ErrMissingHost indicates a Client or per-call override left Host
// empty.
var ErrMissingHost = errors.New("missing required argument: host")

// Client holds the connection parameters to reach a name server's
// control channel: host, port, and the Base64-encoded HMAC-MD5 key.
// A zero Port means DefaultPort.
type Client struct {
	Host string
	Port int
	Key  string

	// DialTimeout bounds the initial TCP connection attempt. Zero
	// means no timeout.
	DialTimeout time.Duration

	// Metrics, if non-nil, records handshake outcome counters and
	// latency under the "client" role label.
	Metrics *rndcmetrics.Collector
}

// Option overrides a single field of Client for one Do call, leaving the
// Client's own configuration untouched for subsequent calls.
type Option func(*Client)

// WithHost overrides the host for one call. "server" is accepted as an
// undocumented alias in configuration file parsing (internal/config);
// this Option only ever sets Host.
func WithHost(host string) Option {
	return func(c *Client) { c.Host = host }
}

// WithPort overrides the port for one call.
func WithPort(port int) Option {
	return func(c *Client) { c.Port = port }
}

// WithKey overrides the HMAC key for one call.
func WithKey(key string) Option {
	return func(c *Client) { c.Key = key }
}

// Do opens a TCP connection to Host:Port, drives an rndc.Session in the
// client role for command, and returns the server's response text. Any
// of host, port, or key may be overridden for this call alone via opts.
func (c Client) Do(command string, opts ...Option) (string, error) {
	for _, opt := range opts {
		opt(&c)
	}
	if c.Host == "" {
		return "", ErrMissingHost
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	start := time.Now()
	if c.Metrics != nil {
		c.Metrics.IncStarted("client")
	}

	resp, err := c.do(command, net.JoinHostPort(c.Host, strconv.Itoa(port)))

	if c.Metrics != nil {
		c.Metrics.ObserveDuration("client", time.Since(start))
		if err != nil {
			c.Metrics.IncFailed("client")
			if errors.Is(err, rndc.ErrBadSignature) {
				c.Metrics.IncAuthFailures("client")
			}
		} else {
			c.Metrics.IncSucceeded("client")
		}
	}
	return resp, err
}

// do performs the dial-and-pump loop against addr, isolated from Do so
// the metrics bookkeeping above always runs exactly once per call.
func (c Client) do(command, addr string) (string, error) {
	sess, err := rndc.NewClientSession(c.Key, command)
	if err != nil {
		return "", fmt.Errorf("rndc client: %w", err)
	}

	var dialer net.Dialer
	if c.DialTimeout > 0 {
		dialer.Timeout = c.DialTimeout
	}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("rndc client: dial %s: %w", addr, err)
	}
	defer conn.Close() //nolint:errcheck // best-effort close after the exchange completes.

	return pump(sess, conn)
}

// pump drives sess to completion against conn: on WantWrite it writes
// the bytes and calls Next(nil); on WantRead it reads up to
// readBufferSize bytes and calls Next(buf); on WantFinish it returns the
// response; on WantError it returns the wrapped error. The session
// itself never touches conn -- pump is the one place I/O and the state
// machine meet.
func pump(sess *rndc.Session, conn net.Conn) (string, error) {
	ev, err := sess.Start()
	if err != nil {
		return "", fmt.Errorf("rndc client: start: %w", err)
	}

	for {
		switch ev.Kind {
		case rndc.WantWrite:
			if _, err := conn.Write(ev.Write); err != nil {
				return "", fmt.Errorf("rndc client: write: %w", err)
			}
			ev, err = sess.Next(nil)

		case rndc.WantRead:
			buf := make([]byte, readBufferSize)
			n, rerr := conn.Read(buf)
			if rerr != nil && n == 0 {
				return "", fmt.Errorf("rndc client: read: %w", rerr)
			}
			ev, err = sess.Next(buf[:n])

		case rndc.WantFinish:
			return ev.Response, nil

		case rndc.WantError:
			return "", fmt.Errorf("rndc client: %w", ev.Err)

		default:
			return "", fmt.Errorf("rndc client: unexpected event kind %v", ev.Kind)
		}
		if err != nil {
			return "", fmt.Errorf("rndc client: %w", err)
		}
	}
}
