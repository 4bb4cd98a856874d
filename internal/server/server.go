// Package server streams type-system snapshots to a single attached peer.
//
// The server owns one channel at a time. It listens, streams frames at the
// current interval until the peer goes away, then listens again. Duplex
// sessions also read INTERVAL and REFRESH commands from the peer.
package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"typescope/internal/metrics"
	"typescope/pkg/channel"
	"typescope/pkg/extractor"
	"typescope/pkg/model"
	"typescope/pkg/wire"
)

const (
	// DefaultInterval is the streaming interval before any INTERVAL command
	DefaultInterval = 1000 * time.Millisecond

	// MinInterval is the floor applied to INTERVAL commands
	MinInterval = 100 * time.Millisecond

	// DefaultRetryBackoff is the pause after a failed listen
	DefaultRetryBackoff = time.Second

	// DefaultJoinTimeout bounds how long Stop waits for background work
	DefaultJoinTimeout = time.Second
)

// Snapshotter produces one snapshot per call
type Snapshotter interface {
	Extract(ctx context.Context) (*model.Snapshot, extractor.Report)
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMode sets the initial channel mode
func WithMode(mode channel.Mode) Option {
	return func(s *Server) {
		s.mode.Store(int32(mode))
	}
}

// WithRetryBackoff sets the pause after a failed listen
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

// WithJoinTimeout sets how long Stop waits for background work
func WithJoinTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.joinTimeout = d
		}
	}
}

// WithStateHook registers fn to be called on every state transition
func WithStateHook(fn func(State)) Option {
	return func(s *Server) {
		s.onState = fn
	}
}

// Server is the streaming state machine
type Server struct {
	opener       channel.Opener
	snapshotter  Snapshotter
	logger       zerolog.Logger
	retryBackoff time.Duration
	joinTimeout  time.Duration
	onState      func(State)

	state      atomic.Int32
	mode       atomic.Int32
	intervalMs atomic.Int64
	running    atomic.Bool
	refresh    chan struct{}

	framesSent atomic.Uint64
	bytesSent  atomic.Uint64
	sessions   atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	activeMu  sync.Mutex
	active    channel.Channel
	sessionID string
	lastFrame time.Time
	lastTypes int
}

// New creates a server streaming snapshots from snapshotter over channels
// created by opener.
func New(opener channel.Opener, snapshotter Snapshotter, opts ...Option) *Server {
	s := &Server{
		opener:       opener,
		snapshotter:  snapshotter,
		logger:       log.Logger,
		retryBackoff: DefaultRetryBackoff,
		joinTimeout:  DefaultJoinTimeout,
		refresh:      make(chan struct{}, 1),
	}
	s.intervalMs.Store(DefaultInterval.Milliseconds())
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "server").Logger()
	return s
}

// Start launches the accept loop. Calling it while running is a no-op.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		s.logger.Info().Msg("Server already running")
		return
	}

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)
	metrics.StreamInterval.Set(s.Interval().Seconds())

	go s.run(ctx, s.done)
}

// Stop ends streaming and closes the active channel, waiting at most the
// join timeout for background work. Safe to call at any time.
func (s *Server) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.running.Store(false)
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	s.activeMu.Lock()
	ch := s.active
	s.activeMu.Unlock()
	if ch != nil {
		if err := ch.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Error closing channel")
		}
	}

	select {
	case <-done:
	case <-time.After(s.joinTimeout):
		s.logger.Warn().Dur("timeout", s.joinTimeout).Msg("Timed out waiting for streaming to stop")
	}
	s.setState(StateStopped)
	s.logger.Info().Msg("Server stopped")
}

// IsRunning returns true between Start and Stop
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// State returns the current lifecycle state
func (s *Server) State() State {
	return State(s.state.Load())
}

// StateName returns the current state as a string
func (s *Server) StateName() string {
	return s.State().String()
}

// Mode returns the mode the next channel will be opened in
func (s *Server) Mode() channel.Mode {
	return channel.Mode(s.mode.Load())
}

// IsConnected returns true while a peer is attached
func (s *Server) IsConnected() bool {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.active != nil && s.active.IsConnected()
}

// Interval returns the current streaming interval
func (s *Server) Interval() time.Duration {
	return time.Duration(s.intervalMs.Load()) * time.Millisecond
}

// SetInterval sets the streaming interval to max(MinInterval, ms) and
// returns the applied value.
func (s *Server) SetInterval(ms int64) time.Duration {
	ms = max(ms, MinInterval.Milliseconds())
	s.intervalMs.Store(ms)
	d := time.Duration(ms) * time.Millisecond
	metrics.StreamInterval.Set(d.Seconds())
	return d
}

// RequestRefresh makes the send loop skip the rest of its current wait
func (s *Server) RequestRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *Server) setState(state State) {
	if State(s.state.Swap(int32(state))) == state {
		return
	}
	metrics.SetState(state.String())
	s.logger.Debug().Str("state", state.String()).Msg("State changed")
	if s.onState != nil {
		s.onState(state)
	}
}

func (s *Server) setActive(ch channel.Channel) {
	s.activeMu.Lock()
	s.active = ch
	s.activeMu.Unlock()
}

// release closes ch and clears it if it is still the active channel
func (s *Server) release(ch channel.Channel) {
	s.activeMu.Lock()
	if s.active == ch {
		s.active = nil
		s.sessionID = ""
		metrics.ConnectionStatus.Set(0)
	}
	s.activeMu.Unlock()

	if err := ch.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Error closing channel")
	}
}

// run is the accept loop
func (s *Server) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		// after a restart the newer run owns the state
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.done == done {
			s.setState(StateStopped)
		}
	}()

	s.logger.Info().
		Str("channel", s.opener.Describe()).
		Str("mode", s.Mode().String()).
		Msg("Streaming server started")

	for s.running.Load() && ctx.Err() == nil {
		mode := s.Mode()
		s.setState(StateListening)

		ch, err := s.listen(ctx, mode)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !s.handleListenError(ctx, mode, err) {
				return
			}
			continue
		}

		s.serve(ctx, ch)
		s.release(ch)
		if ctx.Err() != nil || !s.running.Load() {
			return
		}
		s.setState(StateDisconnected)
	}
}

func (s *Server) listen(ctx context.Context, mode channel.Mode) (channel.Channel, error) {
	ch, err := s.opener.Open(mode)
	if err != nil {
		return nil, err
	}
	s.setActive(ch)

	// Stop may have run between Open and setActive
	if ctx.Err() != nil {
		s.release(ch)
		return nil, ctx.Err()
	}

	s.logger.Info().Str("channel", s.opener.Describe()).Str("mode", mode.String()).Msg("Waiting for peer")
	if err := ch.Listen(ctx); err != nil {
		s.release(ch)
		return nil, err
	}
	return ch, nil
}

// handleListenError reports whether the accept loop should continue
func (s *Server) handleListenError(ctx context.Context, mode channel.Mode, err error) bool {
	switch {
	case channel.IsNotSupported(err) && mode == channel.ModeDuplex:
		s.mode.Store(int32(channel.ModeSendOnly))
		metrics.ModeDowngradesTotal.Inc()
		s.logger.Warn().Err(err).Msg("Duplex mode not supported, falling back to send-only")
		return true

	case channel.IsNotSupported(err), channel.IsUnavailable(err):
		metrics.ListenErrorsTotal.WithLabelValues("unavailable").Inc()
		s.logger.Error().Err(err).Str("mode", mode.String()).Msg("Channel unavailable, stopping server")
		s.running.Store(false)
		return false

	default:
		metrics.ListenErrorsTotal.WithLabelValues("transport").Inc()
		s.logger.Error().Err(err).Dur("retry_in", s.retryBackoff).Msg("Listen failed")
		return sleep(ctx, s.retryBackoff)
	}
}

// serve runs one session on an attached channel
func (s *Server) serve(ctx context.Context, ch channel.Channel) {
	id := uuid.NewString()
	mode := ch.Mode()
	logger := s.logger.With().Str("session_id", id).Str("mode", mode.String()).Logger()

	s.activeMu.Lock()
	s.sessionID = id
	s.activeMu.Unlock()
	s.sessions.Add(1)
	metrics.SessionsTotal.WithLabelValues(mode.String()).Inc()
	metrics.ConnectionStatus.Set(1)
	s.setState(StateConnected)
	logger.Info().Msg("Peer connected")

	// drop a refresh left over from the previous session
	select {
	case <-s.refresh:
	default:
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var readerDone chan struct{}
	if mode == channel.ModeDuplex {
		readerDone = make(chan struct{})
		go func() {
			defer close(readerDone)
			s.readCommands(sctx, ch, logger)
		}()
	}

	s.setState(StateStreaming)
	frames := s.stream(sctx, ch, logger)
	cancel()

	if readerDone != nil {
		select {
		case <-readerDone:
		case <-time.After(s.joinTimeout):
			logger.Warn().Msg("Timed out waiting for command reader")
		}
	}
	logger.Info().Uint64("frames", frames).Msg("Session ended")
}

// stream is the send loop. It returns the number of frames sent.
func (s *Server) stream(ctx context.Context, ch channel.Channel, logger zerolog.Logger) uint64 {
	var frames uint64
	for s.running.Load() && ctx.Err() == nil && ch.IsConnected() {
		snap, report := s.snapshotter.Extract(ctx)
		recordReport(snap, report)
		payload := wire.Encode(snap)

		if err := ch.WriteFrame(payload); err != nil {
			if ctx.Err() == nil {
				logger.Info().Err(err).Msg("Peer disconnected")
			}
			return frames
		}

		frames++
		s.framesSent.Add(1)
		s.bytesSent.Add(uint64(len(payload) + wire.HeaderSize))
		metrics.FramesSentTotal.Inc()
		metrics.FrameBytesTotal.Add(float64(len(payload) + wire.HeaderSize))
		metrics.FrameSize.Observe(float64(len(payload)))

		s.activeMu.Lock()
		s.lastFrame = snap.CapturedAt
		s.lastTypes = len(snap.Types)
		s.activeMu.Unlock()

		logger.Debug().
			Int("bytes", len(payload)).
			Int("type_count", len(snap.Types)).
			Msg("Snapshot sent")

		if !s.wait(ctx, logger) {
			return frames
		}
	}
	return frames
}

// wait sleeps for the current interval. It returns early on refresh and
// returns false when ctx is done.
func (s *Server) wait(ctx context.Context, logger zerolog.Logger) bool {
	timer := time.NewTimer(s.Interval())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case <-s.refresh:
		logger.Debug().Msg("Refreshing early")
		return true
	}
}

func recordReport(snap *model.Snapshot, report extractor.Report) {
	status := "ok"
	switch {
	case report.Failed != nil:
		status = "failed"
	case report.Partial != nil || len(report.Dropped) > 0:
		status = "partial"
	}
	metrics.SnapshotsTotal.WithLabelValues(status).Inc()
	metrics.ExtractionDuration.Observe(report.Duration.Seconds())
	metrics.SnapshotTypes.Set(float64(len(snap.Types)))
	if report.Partial != nil {
		metrics.TypeFaultsTotal.WithLabelValues("partial_enumeration").Inc()
	}
	if len(report.Dropped) > 0 {
		metrics.TypeFaultsTotal.WithLabelValues("type").Add(float64(len(report.Dropped)))
	}
}

// sleep waits for d and returns false if ctx ends first
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
