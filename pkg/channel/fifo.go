package channel

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultFIFOPollInterval is how often Listen retries opening a pipe without a reader
const DefaultFIFOPollInterval = 50 * time.Millisecond

// FIFOOpener streams frames into a named pipe. Pipes are one-way, so duplex
// opens fail with a *CapabilityError.
type FIFOOpener struct {
	path         string
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewFIFOOpener creates an opener for the pipe at path
func NewFIFOOpener(path string, pollInterval time.Duration, logger zerolog.Logger) *FIFOOpener {
	if pollInterval <= 0 {
		pollInterval = DefaultFIFOPollInterval
	}
	return &FIFOOpener{
		path:         path,
		pollInterval: pollInterval,
		logger:       logger.With().Str("transport", "fifo").Str("path", path).Logger(),
	}
}

// Describe returns fifo:path
func (o *FIFOOpener) Describe() string {
	return "fifo:" + o.path
}
