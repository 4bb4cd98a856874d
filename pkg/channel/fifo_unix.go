//go:build unix

package channel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"typescope/pkg/wire"
)

// Open creates the pipe if needed. Only send-only mode is supported.
func (o *FIFOOpener) Open(mode Mode) (Channel, error) {
	if mode == ModeDuplex {
		return nil, &CapabilityError{Op: "open", Mode: mode, Reason: "named pipes are one-way"}
	}

	info, err := os.Stat(o.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := unix.Mkfifo(o.path, 0o600); err != nil {
			return nil, &Error{Op: "open", Err: fmt.Errorf("mkfifo %s: %w", o.path, err)}
		}
		o.logger.Debug().Msg("Created named pipe")
	case err != nil:
		return nil, &Error{Op: "open", Err: err}
	case info.Mode()&os.ModeNamedPipe == 0:
		return nil, &Error{Op: "open", Err: fmt.Errorf("%s exists and is not a named pipe", o.path)}
	}

	return &fifoChannel{
		path:         o.path,
		mode:         mode,
		pollInterval: o.pollInterval,
		closing:      make(chan struct{}),
	}, nil
}

type fifoChannel struct {
	path         string
	mode         Mode
	pollInterval time.Duration

	mu        sync.Mutex
	file      *os.File
	connected atomic.Bool
	closing   chan struct{}
	closeOnce sync.Once
}

func (c *fifoChannel) Mode() Mode        { return c.mode }
func (c *fifoChannel) IsConnected() bool { return c.connected.Load() }

// Listen waits for a reader to open the other end. Opening a pipe for
// writing without a reader fails with ENXIO in non-blocking mode, so the
// open is retried until a reader appears.
func (c *fifoChannel) Listen(ctx context.Context) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		fd, err := unix.Open(c.path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err == nil {
			// Left non-blocking: os.NewFile registers it with the runtime poller.
			c.mu.Lock()
			c.file = os.NewFile(uintptr(fd), c.path)
			c.mu.Unlock()
			c.connected.Store(true)
			return nil
		}
		if !errors.Is(err, unix.ENXIO) {
			return &Error{Op: "listen", Err: err}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closing:
			return ErrClosed
		case <-ticker.C:
		}
	}
}

func (c *fifoChannel) WriteFrame(payload []byte) error {
	c.mu.Lock()
	f := c.file
	c.mu.Unlock()
	if f == nil {
		return ErrNotConnected
	}

	if err := wire.WriteFrame(f, payload); err != nil {
		c.connected.Store(false)
		return &Error{Op: "write", Err: err}
	}
	return nil
}

func (c *fifoChannel) ReadAvailable(buf []byte) (int, error) {
	return 0, &CapabilityError{Op: "read", Mode: c.mode, Reason: "named pipes are one-way"}
}

func (c *fifoChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		c.connected.Store(false)
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.file != nil {
			err = c.file.Close()
		}
	})
	return err
}
