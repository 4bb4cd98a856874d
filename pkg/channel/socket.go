package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"typescope/pkg/wire"
)

// DefaultPollTimeout bounds a single ReadAvailable call
const DefaultPollTimeout = 100 * time.Millisecond

// SocketOpener listens on a unix or tcp address
type SocketOpener struct {
	network     string
	address     string
	pollTimeout time.Duration
	logger      zerolog.Logger
}

// NewSocketOpener creates an opener for network ("unix" or "tcp") and address
func NewSocketOpener(network, address string, pollTimeout time.Duration, logger zerolog.Logger) *SocketOpener {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &SocketOpener{
		network:     network,
		address:     address,
		pollTimeout: pollTimeout,
		logger:      logger.With().Str("transport", network).Str("address", address).Logger(),
	}
}

// Describe returns network:address
func (o *SocketOpener) Describe() string {
	return o.network + ":" + o.address
}

// Open binds the listener. Stale unix socket files are removed first.
func (o *SocketOpener) Open(mode Mode) (Channel, error) {
	if o.network == "unix" {
		if info, err := os.Lstat(o.address); err == nil && info.Mode()&os.ModeSocket != 0 {
			if err := os.Remove(o.address); err != nil {
				return nil, &Error{Op: "open", Err: err}
			}
			o.logger.Debug().Msg("Removed stale socket file")
		}
	}

	ln, err := net.Listen(o.network, o.address)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	return &socketChannel{
		ln:          ln,
		mode:        mode,
		pollTimeout: o.pollTimeout,
		logger:      o.logger,
	}, nil
}

type socketChannel struct {
	ln          net.Listener
	mode        Mode
	pollTimeout time.Duration
	logger      zerolog.Logger

	mu        sync.Mutex
	conn      net.Conn
	writeMu   sync.Mutex
	connected atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

func (c *socketChannel) Mode() Mode        { return c.mode }
func (c *socketChannel) IsConnected() bool { return c.connected.Load() }
func (c *socketChannel) Addr() net.Addr    { return c.ln.Addr() }

// Listen accepts exactly one peer and then stops listening.
func (c *socketChannel) Listen(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.ln.Close()
		case <-done:
		}
	}()

	conn, err := c.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.closed.Load() {
			return ErrClosed
		}
		return &Error{Op: "accept", Err: err}
	}
	c.ln.Close()

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.connected.Store(true)
	c.mu.Unlock()

	c.logger.Debug().Str("remote_addr", conn.RemoteAddr().String()).Msg("Peer attached")
	return nil
}

func (c *socketChannel) current() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *socketChannel) WriteFrame(payload []byte) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wire.WriteFrame(conn, payload); err != nil {
		c.connected.Store(false)
		return &Error{Op: "write", Err: err}
	}
	return nil
}

func (c *socketChannel) ReadAvailable(buf []byte) (int, error) {
	if c.mode != ModeDuplex {
		return 0, &CapabilityError{Op: "read", Mode: c.mode}
	}
	conn := c.current()
	if conn == nil {
		return 0, ErrNotConnected
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.pollTimeout)); err != nil {
		return 0, &Error{Op: "read", Err: err}
	}
	n, err := conn.Read(buf)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return n, nil
	case errors.Is(err, io.EOF):
		c.connected.Store(false)
		return n, &Error{Op: "read", Err: io.EOF}
	default:
		c.connected.Store(false)
		return n, &Error{Op: "read", Err: err}
	}
}

func (c *socketChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.ln.Close()
		conn := c.current()
		c.connected.Store(false)
		if conn != nil {
			if cerr := conn.Close(); cerr != nil {
				err = fmt.Errorf("close connection: %w", cerr)
			}
		}
	})
	return err
}
