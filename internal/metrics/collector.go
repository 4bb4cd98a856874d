package metrics

import (
	"context"
	"sync"
	"time"
)

// States lists every value of the state label
var States = []string{"idle", "listening", "connected", "streaming", "disconnected", "stopped"}

// StateSource provides access to server state for metrics collection
type StateSource interface {
	StateName() string
	IsConnected() bool
	Interval() time.Duration
}

// Collector periodically updates gauge metrics from server state
type Collector struct {
	server   StateSource
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(server StateSource, interval time.Duration) *Collector {
	if interval == 0 {
		interval = 5 * time.Second
	}

	return &Collector{
		server:   server,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins periodic metrics collection
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// Collect updates all gauges once
func (c *Collector) Collect() {
	SetState(c.server.StateName())

	status := 0.0
	if c.server.IsConnected() {
		status = 1.0
	}
	ConnectionStatus.Set(status)
	StreamInterval.Set(c.server.Interval().Seconds())
}

// SetState marks state as the active server state
func SetState(state string) {
	for _, s := range States {
		value := 0.0
		if s == state {
			value = 1.0
		}
		ServerState.WithLabelValues(s).Set(value)
	}
}
