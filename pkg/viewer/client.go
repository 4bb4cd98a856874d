// Package viewer reads snapshot frames from a running typescope agent.
package viewer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"typescope/pkg/channel"
	"typescope/pkg/model"
	"typescope/pkg/wire"
)

// ErrSendOnly is returned by SendCommand on transports without an inbound path
var ErrSendOnly = errors.New("transport does not accept commands")

// Option configures a Client
type Option func(*Client)

// WithLogger sets the client logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMaxFrameSize sets the largest accepted payload
func WithMaxFrameSize(max uint32) Option {
	return func(c *Client) {
		c.maxFrame = max
	}
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Client is a connection to an agent
type Client struct {
	transport channel.Transport
	maxFrame  uint32
	logger    zerolog.Logger

	stream io.ReadWriteCloser
	reader *bufio.Reader
	ws     *websocket.Conn

	writeMu sync.Mutex
}

// Dial connects to the agent endpoint. For FIFOs it blocks until the agent
// opens the write end or ctx is done.
func Dial(ctx context.Context, ep channel.Endpoint, opts ...Option) (*Client, error) {
	c := &Client{
		transport: channel.ParseTransport(ep.Transport),
		maxFrame:  wire.MaxFrameSize,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	switch c.transport {
	case channel.TransportUnix, channel.TransportTCP:
		var d net.Dialer
		var conn net.Conn
		conn, err = d.DialContext(ctx, c.transport.String(), ep.Address)
		c.stream = conn
	case channel.TransportFIFO:
		c.stream, err = openFIFO(ctx, ep.Address)
	case channel.TransportWebSocket:
		c.ws, err = dialWebSocket(ctx, ep)
	default:
		return nil, fmt.Errorf("unknown transport: %s", ep.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s %s: %w", c.transport, ep.Address, err)
	}
	if c.stream != nil {
		c.reader = bufio.NewReader(c.stream)
	}

	c.logger.Debug().Str("transport", c.transport.String()).Str("address", ep.Address).Msg("Connected to agent")
	return c, nil
}

func dialWebSocket(ctx context.Context, ep channel.Endpoint) (*websocket.Conn, error) {
	path := ep.Path
	if path == "" {
		path = channel.DefaultWebSocketPath
	}
	u := url.URL{Scheme: "ws", Host: ep.Address, Path: path}
	if strings.Contains(ep.Address, "://") {
		parsed, err := url.Parse(ep.Address)
		if err != nil {
			return nil, err
		}
		u = *parsed
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

func openFIFO(ctx context.Context, path string) (*os.File, error) {
	type result struct {
		f   *os.File
		err error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		ch <- result{f, err}
	}()

	select {
	case r := <-ch:
		return r.f, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.f != nil {
				r.f.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Transport returns the transport the client is using
func (c *Client) Transport() channel.Transport {
	return c.transport
}

// Next blocks until the next snapshot arrives. A cancelled ctx interrupts
// the read; websocket clients cannot be reused after that.
func (c *Client) Next(ctx context.Context) (*model.Snapshot, error) {
	payload, err := c.NextFrame(ctx)
	if err != nil {
		return nil, err
	}
	return wire.Decode(payload)
}

// NextFrame returns the next raw payload
func (c *Client) NextFrame(ctx context.Context) ([]byte, error) {
	stop := c.watch(ctx)
	defer stop()

	var payload []byte
	var err error
	if c.ws != nil {
		payload, err = c.nextMessage()
	} else {
		payload, err = wire.ReadFrame(c.reader, c.maxFrame)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// the read deadline can fire just before ctx records its own expiry
		if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	return payload, nil
}

func (c *Client) nextMessage() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		return wire.ReadFrame(bytes.NewReader(data), c.maxFrame)
	}
}

// watch applies ctx's deadline and cancellation to blocking reads
func (c *Client) watch(ctx context.Context) func() {
	var d deadliner
	if c.ws != nil {
		d = c.ws
	} else if dl, ok := c.stream.(deadliner); ok {
		d = dl
	}
	if d == nil {
		return func() {}
	}

	if deadline, ok := ctx.Deadline(); ok {
		d.SetReadDeadline(deadline)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			d.SetReadDeadline(time.Now())
		case <-done:
		}
	}()
	return func() {
		close(done)
		d.SetReadDeadline(time.Time{})
	}
}

// SendCommand sends one command line to the agent
func (c *Client) SendCommand(cmd string) error {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return fmt.Errorf("empty command")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	switch {
	case c.transport == channel.TransportFIFO:
		return ErrSendOnly
	case c.ws != nil:
		return c.ws.WriteMessage(websocket.TextMessage, []byte(cmd))
	default:
		_, err := io.WriteString(c.stream, cmd+"\n")
		return err
	}
}

// SetInterval asks the agent to stream every ms milliseconds
func (c *Client) SetInterval(ms int) error {
	return c.SendCommand(fmt.Sprintf("INTERVAL:%d", ms))
}

// Refresh asks the agent for a snapshot now
func (c *Client) Refresh() error {
	return c.SendCommand("REFRESH")
}

// Close closes the connection
func (c *Client) Close() error {
	if c.ws != nil {
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		return c.ws.Close()
	}
	return c.stream.Close()
}
