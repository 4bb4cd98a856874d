package channel

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Endpoint describes where the server listens
type Endpoint struct {
	Transport   string
	Address     string
	Path        string
	PollTimeout time.Duration
}

// NewOpener creates the opener for the endpoint's transport
func NewOpener(ep Endpoint, logger zerolog.Logger) (Opener, error) {
	if ep.Address == "" {
		return nil, fmt.Errorf("channel address is empty")
	}

	switch ParseTransport(ep.Transport) {
	case TransportUnix:
		return NewSocketOpener("unix", ep.Address, ep.PollTimeout, logger), nil
	case TransportTCP:
		return NewSocketOpener("tcp", ep.Address, ep.PollTimeout, logger), nil
	case TransportFIFO:
		return NewFIFOOpener(ep.Address, 0, logger), nil
	case TransportWebSocket:
		return NewWebSocketOpener(ep.Address, ep.Path, ep.PollTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown channel transport: %s", ep.Transport)
	}
}
