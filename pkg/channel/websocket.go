package channel

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"typescope/pkg/wire"
)

const (
	// DefaultWebSocketPath is the upgrade endpoint
	DefaultWebSocketPath = "/stream"

	wsWriteTimeout = 10 * time.Second
	wsMaxPending   = 64 * 1024
	wsMaxConns     = 4
)

// WebSocketOpener serves a single-peer WebSocket endpoint. Each frame is sent
// as one binary message holding the length prefix and payload; text messages
// from the peer are commands.
type WebSocketOpener struct {
	address     string
	path        string
	pollTimeout time.Duration
	logger      zerolog.Logger
}

// NewWebSocketOpener creates an opener listening on address and serving path
func NewWebSocketOpener(address, path string, pollTimeout time.Duration, logger zerolog.Logger) *WebSocketOpener {
	if path == "" {
		path = DefaultWebSocketPath
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &WebSocketOpener{
		address:     address,
		path:        path,
		pollTimeout: pollTimeout,
		logger:      logger.With().Str("transport", "websocket").Str("address", address).Logger(),
	}
}

// Describe returns the ws:// URL of the endpoint
func (o *WebSocketOpener) Describe() string {
	return "ws://" + o.address + o.path
}

// Open starts the HTTP listener for one connection attempt
func (o *WebSocketOpener) Open(mode Mode) (Channel, error) {
	ln, err := net.Listen("tcp", o.address)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	c := &wsChannel{
		ln:          ln,
		mode:        mode,
		pollTimeout: o.pollTimeout,
		logger:      o.logger,
		peers:       make(chan *websocket.Conn, 1),
		notify:      make(chan struct{}, 1),
		closing:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	r := mux.NewRouter()
	r.HandleFunc(o.path, c.handleUpgrade).Methods("GET")
	c.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := c.srv.Serve(netutil.LimitListener(ln, wsMaxConns)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Warn().Err(err).Msg("WebSocket listener stopped")
		}
	}()

	return c, nil
}

type wsChannel struct {
	ln          net.Listener
	srv         *http.Server
	mode        Mode
	pollTimeout time.Duration
	logger      zerolog.Logger
	upgrader    websocket.Upgrader

	attached  atomic.Bool
	connected atomic.Bool
	peers     chan *websocket.Conn
	closing   chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	conn    *websocket.Conn
	pending bytes.Buffer
	notify  chan struct{}
	writeMu sync.Mutex
}

func (c *wsChannel) Mode() Mode        { return c.mode }
func (c *wsChannel) IsConnected() bool { return c.connected.Load() }
func (c *wsChannel) Addr() net.Addr    { return c.ln.Addr() }

func (c *wsChannel) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !c.attached.CompareAndSwap(false, true) {
		http.Error(w, "a viewer is already attached", http.StatusServiceUnavailable)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.attached.Store(false)
		c.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	select {
	case c.peers <- conn:
	case <-c.closing:
		conn.Close()
	}
}

func (c *wsChannel) Listen(ctx context.Context) error {
	select {
	case conn := <-c.peers:
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.connected.Store(true)
		c.logger.Debug().Str("remote_addr", conn.RemoteAddr().String()).Msg("Peer attached")
		go c.readPump(conn)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closing:
		return ErrClosed
	}
}

// readPump keeps reading so control frames are processed, buffering text
// messages as newline-terminated commands in duplex mode.
func (c *wsChannel) readPump(conn *websocket.Conn) {
	defer func() {
		c.connected.Store(false)
		c.wake()
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if c.mode != ModeDuplex || kind != websocket.TextMessage {
			continue
		}

		c.mu.Lock()
		if c.pending.Len()+len(data) < wsMaxPending {
			c.pending.Write(data)
			c.pending.WriteByte('\n')
		}
		c.mu.Unlock()
		c.wake()
	}
}

func (c *wsChannel) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *wsChannel) WriteFrame(payload []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, wire.AppendFrame(nil, payload)); err != nil {
		c.connected.Store(false)
		return &Error{Op: "write", Err: err}
	}
	return nil
}

func (c *wsChannel) ReadAvailable(buf []byte) (int, error) {
	if c.mode != ModeDuplex {
		return 0, &CapabilityError{Op: "read", Mode: c.mode}
	}

	timer := time.NewTimer(c.pollTimeout)
	defer timer.Stop()
	for {
		c.mu.Lock()
		if c.pending.Len() > 0 {
			n, _ := c.pending.Read(buf)
			c.mu.Unlock()
			return n, nil
		}
		c.mu.Unlock()

		if !c.connected.Load() {
			return 0, &Error{Op: "read", Err: net.ErrClosed}
		}

		select {
		case <-c.notify:
		case <-timer.C:
			return 0, nil
		case <-c.closing:
			return 0, ErrClosed
		}
	}
}

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		c.connected.Store(false)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err = c.srv.Shutdown(ctx)
	})
	return err
}
