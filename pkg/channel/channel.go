package channel

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// Channel carries length-prefixed frames to one attached peer.
//
// A channel is opened in a Mode. Send-only channels report reads as
// unsupported through a *CapabilityError rather than failing the connection.
type Channel interface {
	// Listen blocks until a peer attaches or ctx is cancelled
	Listen(ctx context.Context) error

	// IsConnected returns true while a peer is attached
	IsConnected() bool

	// WriteFrame writes one frame and flushes it
	WriteFrame(payload []byte) error

	// ReadAvailable returns whatever inbound bytes arrived, possibly none.
	// It waits at most the channel's poll timeout.
	ReadAvailable(buf []byte) (int, error)

	// Mode returns the capability the channel was opened with
	Mode() Mode

	// Close releases the channel and unblocks Listen
	Close() error
}

// Opener creates a fresh channel for each connection attempt.
type Opener interface {
	Open(mode Mode) (Channel, error)
	Describe() string
}

// Addresser is implemented by channels bound to a network address
type Addresser interface {
	Addr() net.Addr
}

// Mode is the direction capability of a channel
type Mode int

const (
	// ModeDuplex - frames out, commands in
	ModeDuplex Mode = iota

	// ModeSendOnly - frames out only
	ModeSendOnly
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeDuplex:
		return "duplex"
	case ModeSendOnly:
		return "send_only"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "duplex", "":
		return ModeDuplex, nil
	case "send_only", "sendonly", "send-only":
		return ModeSendOnly, nil
	default:
		return ModeDuplex, fmt.Errorf("invalid channel mode: %s (must be 'duplex' or 'send_only')", s)
	}
}

// Transport identifies a channel implementation
type Transport int

const (
	// TransportUnknown - unknown or unspecified transport
	TransportUnknown Transport = iota

	// TransportUnix - unix domain socket, duplex capable
	TransportUnix

	// TransportTCP - TCP socket, duplex capable
	TransportTCP

	// TransportFIFO - POSIX named pipe, send-only
	TransportFIFO

	// TransportWebSocket - one binary message per frame, text messages are commands
	TransportWebSocket
)

// String returns the string representation of Transport
func (t Transport) String() string {
	switch t {
	case TransportUnix:
		return "unix"
	case TransportTCP:
		return "tcp"
	case TransportFIFO:
		return "fifo"
	case TransportWebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

// ParseTransport parses a transport name
func ParseTransport(s string) Transport {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unix":
		return TransportUnix
	case "tcp":
		return TransportTCP
	case "fifo", "pipe":
		return TransportFIFO
	case "websocket", "ws":
		return TransportWebSocket
	default:
		return TransportUnknown
	}
}
