package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bracketlab/draftsync/internal/dependencies/clock"
	"github.com/bracketlab/draftsync/internal/model"
)

// DefaultQuietWindow is the debounce window: a burst of changes to the
// same draft within this window collapses into a single save.
const DefaultQuietWindow = 1500 * time.Millisecond

// SaveFunc commits a draft payload. The scheduler calls it off the
// notifying goroutine once the quiet window elapses.
type SaveFunc func(ctx context.Context, owner model.OwnerID, id model.DraftID, payload model.Payload) error

// Scheduler coalesces high-frequency change notifications into debounced
// saves. Guarantees per draft id: the last payload observed before the
// quiet window elapses is the one persisted, saves never run concurrently
// for the same id, and a burst completing mid-save queues exactly one
// follow-up save rather than being skipped.
type Scheduler struct {
	save   SaveFunc
	clock  clock.Clock
	window time.Duration
	logger *slog.Logger

	mu        sync.Mutex
	entries   map[model.DraftID]*entry
	saving    int
	lastSaved time.Time
	lastErr   error
	closed    bool
}

type entry struct {
	owner    model.OwnerID
	pending  *model.Payload
	timer    clock.Timer
	inFlight bool
	queued   bool
}

// New creates a Scheduler with the given quiet window
func New(save SaveFunc, clk clock.Clock, window time.Duration, logger *slog.Logger) *Scheduler {
	if window <= 0 {
		window = DefaultQuietWindow
	}
	return &Scheduler{
		save:    save,
		clock:   clk,
		window:  window,
		logger:  logger.With(slog.String("component", "autosave")),
		entries: make(map[model.DraftID]*entry),
	}
}

// NotifyChange records the latest payload for a draft and (re)arms its
// debounce timer. Safe to call at arbitrary rate.
func (s *Scheduler) NotifyChange(owner model.OwnerID, id model.DraftID, payload model.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	e, ok := s.entries[id]
	if !ok {
		e = &entry{owner: owner}
		s.entries[id] = e
	}
	e.owner = owner
	p := payload
	e.pending = &p

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = s.clock.AfterFunc(s.window, func() {
		s.windowElapsed(id)
	})
}

// Flush commits any pending change for the draft immediately, without
// waiting for the quiet window. Used when the user navigates away.
func (s *Scheduler) Flush(id model.DraftID) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok && e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	s.mu.Unlock()
	if ok {
		s.windowElapsed(id)
	}
}

// IsSaving reports whether any save is currently in flight
func (s *Scheduler) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving > 0
}

// LastSaved returns the timestamp of the last successful save, zero if none
func (s *Scheduler) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// LastError returns the error of the most recent failed save, cleared by
// the next success
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close cancels all pending timers. In-flight saves complete on their
// own; changes not yet past their quiet window are dropped.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
}

// windowElapsed runs when a draft's quiet window ends
func (s *Scheduler) windowElapsed(id model.DraftID) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || s.closed || e.pending == nil {
		s.mu.Unlock()
		return
	}
	if e.inFlight {
		// A save for this id is running; issue ours right after it
		e.queued = true
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.run(id)
}

// run performs saves for the draft until no completed burst remains
func (s *Scheduler) run(id model.DraftID) {
	for {
		s.mu.Lock()
		e, ok := s.entries[id]
		if !ok || s.closed || e.pending == nil {
			s.mu.Unlock()
			return
		}
		if e.inFlight {
			// Another invocation is mid-save for this id; it picks the
			// pending payload up when the save completes
			e.queued = true
			s.mu.Unlock()
			return
		}
		owner := e.owner
		payload := *e.pending
		e.pending = nil
		e.queued = false
		e.inFlight = true
		s.saving++
		s.mu.Unlock()

		err := s.save(context.Background(), owner, id, payload)

		s.mu.Lock()
		e.inFlight = false
		s.saving--
		if err != nil {
			s.lastErr = err
			s.logger.Error("autosave failed",
				slog.String("draft_id", string(id)),
				slog.String("error", err.Error()),
			)
		} else {
			s.lastSaved = s.clock.Now()
			s.lastErr = nil
		}
		again := e.queued && e.pending != nil
		s.mu.Unlock()

		if !again {
			return
		}
	}
}
