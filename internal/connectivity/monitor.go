package connectivity

import "sync"

// Monitor observes network reachability. IsOnline is a best-effort
// signal: a true value does not guarantee remote calls will succeed, so
// consumers keep their own retry logic.
type Monitor interface {
	// IsOnline reports the current reachability signal
	IsOnline() bool

	// Subscribe returns a channel receiving the new state on every
	// online/offline transition, and a cancel function. Slow consumers
	// miss intermediate transitions rather than blocking the monitor.
	Subscribe() (<-chan bool, func())
}

// notifier implements the shared subscriber fan-out for monitors
type notifier struct {
	mu     sync.Mutex
	online bool
	subs   map[chan bool]bool
}

func newNotifier(initial bool) *notifier {
	return &notifier{
		online: initial,
		subs:   make(map[chan bool]bool),
	}
}

func (n *notifier) isOnline() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

func (n *notifier) subscribe() (<-chan bool, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan bool, 1)
	n.subs[ch] = true

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.subs[ch] {
			delete(n.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// set updates the state and fans out the transition. Returns true if
// the state actually changed.
func (n *notifier) set(online bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.online == online {
		return false
	}
	n.online = online

	for ch := range n.subs {
		// Collapse a pending stale transition so the subscriber always
		// sees the most recent state next.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- online:
		default:
		}
	}
	return true
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		delete(n.subs, ch)
		close(ch)
	}
}

// ManualMonitor is a Monitor driven by an external reachability signal,
// for hosts that already observe the environment (and for tests).
type ManualMonitor struct {
	*notifier
}

// Ensure ManualMonitor implements Monitor
var _ Monitor = (*ManualMonitor)(nil)

// NewManual creates a ManualMonitor with the given initial state
func NewManual(online bool) *ManualMonitor {
	return &ManualMonitor{notifier: newNotifier(online)}
}

// IsOnline reports the current state
func (m *ManualMonitor) IsOnline() bool { return m.isOnline() }

// Subscribe registers a transition listener
func (m *ManualMonitor) Subscribe() (<-chan bool, func()) { return m.subscribe() }

// SetOnline feeds the external signal in
func (m *ManualMonitor) SetOnline(online bool) { m.set(online) }

// Close drops all subscribers
func (m *ManualMonitor) Close() { m.closeAll() }
