package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bracketlab/draftsync/internal/dependencies/clock"
)

// Pinger is the probe target, satisfied by the remote draft store
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeConfig holds probe timing settings
type ProbeConfig struct {
	// Interval between reachability probes
	Interval time.Duration
	// Timeout for a single probe
	Timeout time.Duration
}

// DefaultProbeConfig returns sensible probe defaults
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Interval: 30 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// ProbeMonitor derives reachability by periodically pinging the remote
// store. Probes are scheduled through the clock so tests can drive them
// with virtual time.
type ProbeMonitor struct {
	*notifier

	pinger Pinger
	clock  clock.Clock
	cfg    ProbeConfig
	logger *slog.Logger

	mu     sync.Mutex
	timer  clock.Timer
	closed bool
}

// Ensure ProbeMonitor implements Monitor
var _ Monitor = (*ProbeMonitor)(nil)

// NewProbe creates a ProbeMonitor and runs an immediate first probe
func NewProbe(pinger Pinger, clk clock.Clock, cfg ProbeConfig, logger *slog.Logger) *ProbeMonitor {
	m := &ProbeMonitor{
		notifier: newNotifier(false),
		pinger:   pinger,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "connectivity")),
	}
	m.probe()
	return m
}

// IsOnline reports the last probe result
func (m *ProbeMonitor) IsOnline() bool { return m.isOnline() }

// Subscribe registers a transition listener
func (m *ProbeMonitor) Subscribe() (<-chan bool, func()) { return m.subscribe() }

// Close stops probing and drops all subscribers
func (m *ProbeMonitor) Close() {
	m.mu.Lock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
	}
	m.mu.Unlock()
	m.closeAll()
}

func (m *ProbeMonitor) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	err := m.pinger.Ping(ctx)
	cancel()

	online := err == nil
	if m.set(online) {
		if online {
			m.logger.Info("connectivity restored")
		} else {
			m.logger.Warn("connectivity lost", slog.String("error", err.Error()))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.timer = m.clock.AfterFunc(m.cfg.Interval, m.probe)
}
