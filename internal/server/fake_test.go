package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"typescope/pkg/channel"
	"typescope/pkg/extractor"
	"typescope/pkg/model"
)

// fakeChannel is an in-memory channel. Frames written by the server land
// on frames; bytes pushed to reads are returned by ReadAvailable.
type fakeChannel struct {
	mode      channel.Mode
	listenErr error

	frames chan []byte
	reads  chan []byte
	closed chan struct{}

	connected atomic.Bool
	hungUp    atomic.Bool
	closeOnce sync.Once
}

func newFakeChannel(mode channel.Mode) *fakeChannel {
	return &fakeChannel{
		mode:   mode,
		frames: make(chan []byte, 64),
		reads:  make(chan []byte),
		closed: make(chan struct{}),
	}
}

func (c *fakeChannel) Mode() channel.Mode { return c.mode }
func (c *fakeChannel) IsConnected() bool  { return c.connected.Load() }

func (c *fakeChannel) Listen(ctx context.Context) error {
	if c.listenErr != nil {
		return c.listenErr
	}
	select {
	case <-c.closed:
		return channel.ErrClosed
	default:
	}
	c.connected.Store(true)
	return nil
}

func (c *fakeChannel) WriteFrame(payload []byte) error {
	if c.hungUp.Load() {
		c.connected.Store(false)
		return &channel.Error{Op: "write", Err: context.Canceled}
	}
	select {
	case <-c.closed:
		return channel.ErrClosed
	default:
	}
	select {
	case c.frames <- append([]byte(nil), payload...):
	default:
	}
	return nil
}

func (c *fakeChannel) ReadAvailable(buf []byte) (int, error) {
	if c.mode != channel.ModeDuplex {
		return 0, &channel.CapabilityError{Op: "read", Mode: c.mode}
	}
	select {
	case data := <-c.reads:
		return copy(buf, data), nil
	case <-c.closed:
		return 0, channel.ErrClosed
	case <-time.After(10 * time.Millisecond):
		return 0, nil
	}
}

func (c *fakeChannel) Close() error {
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		close(c.closed)
	})
	return nil
}

// hangUp simulates the peer going away
func (c *fakeChannel) hangUp() {
	c.hungUp.Store(true)
}

// fakeOpener hands out channels produced by open and records the modes
// it was asked for.
type fakeOpener struct {
	open func(mode channel.Mode) (channel.Channel, error)

	mu    sync.Mutex
	modes []channel.Mode
}

func (o *fakeOpener) Describe() string { return "fake" }

func (o *fakeOpener) Open(mode channel.Mode) (channel.Channel, error) {
	o.mu.Lock()
	o.modes = append(o.modes, mode)
	o.mu.Unlock()
	if o.open == nil {
		return newFakeChannel(mode), nil
	}
	return o.open(mode)
}

func (o *fakeOpener) opened() []channel.Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]channel.Mode(nil), o.modes...)
}

type fakeSnapshotter struct {
	calls atomic.Int64
}

func (f *fakeSnapshotter) Extract(ctx context.Context) (*model.Snapshot, extractor.Report) {
	f.calls.Add(1)
	return &model.Snapshot{
		SourceName: "fake",
		CapturedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Types: []model.TypeDescriptor{
			{Name: "Widget", FullName: "fake.Widget", Namespace: "fake", IsStruct: true},
		},
	}, extractor.Report{}
}
