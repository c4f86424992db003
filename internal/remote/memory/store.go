package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bracketlab/draftsync/internal/dependencies/clock"
	"github.com/bracketlab/draftsync/internal/model"
	"github.com/bracketlab/draftsync/internal/remote"
)

// Store is an in-memory implementation of the remote draft store.
// Used in tests (with SetAvailable to simulate outages) and as the
// backend when the agent runs without a remote service.
type Store struct {
	mu        sync.RWMutex
	clock     clock.Clock
	drafts    map[model.DraftID]*model.Draft
	available bool
}

// New creates a new in-memory remote store
func New(clk clock.Clock) *Store {
	return &Store{
		clock:     clk,
		drafts:    make(map[model.DraftID]*model.Draft),
		available: true,
	}
}

// Ensure Store implements the interface
var _ remote.Store = (*Store)(nil)

// SetAvailable toggles simulated reachability. While unavailable every
// operation fails with model.ErrRemoteUnavailable.
func (s *Store) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = available
}

// Seed inserts a draft directly, bypassing availability checks (for tests)
func (s *Store) Seed(draft *model.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := draft.Clone()
	d.SyncState = ""
	d.Conflict = nil
	s.drafts[d.ID] = d
}

func (s *Store) Create(ctx context.Context, owner model.OwnerID, name string, payload model.Payload) (model.DraftID, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return "", time.Time{}, model.ErrRemoteUnavailable
	}

	now := s.clock.Now().UTC()
	draft := &model.Draft{
		ID:        model.DraftID(uuid.NewString()),
		OwnerID:   owner,
		Name:      name,
		Payload:   payload,
		Status:    model.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.drafts[draft.ID] = draft
	return draft.ID, draft.UpdatedAt, nil
}

func (s *Store) Update(ctx context.Context, id model.DraftID, owner model.OwnerID, fields remote.UpdateFields) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return time.Time{}, model.ErrRemoteUnavailable
	}

	draft, err := s.lookup(id, owner)
	if err != nil {
		return time.Time{}, err
	}

	if fields.Name != nil {
		draft.Name = *fields.Name
	}
	if fields.Payload != nil {
		draft.Payload = *fields.Payload
	}
	if fields.Status != nil {
		draft.Status = *fields.Status
	}
	draft.UpdatedAt = s.clock.Now().UTC()
	return draft.UpdatedAt, nil
}

func (s *Store) Get(ctx context.Context, id model.DraftID, owner model.OwnerID) (*model.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.available {
		return nil, model.ErrRemoteUnavailable
	}

	draft, err := s.lookup(id, owner)
	if err != nil {
		return nil, err
	}
	return draft.Clone(), nil
}

func (s *Store) ListByOwner(ctx context.Context, owner model.OwnerID) ([]*model.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.available {
		return nil, model.ErrRemoteUnavailable
	}

	var drafts []*model.Draft
	for _, draft := range s.drafts {
		if draft.OwnerID == owner {
			drafts = append(drafts, draft.Clone())
		}
	}
	return drafts, nil
}

func (s *Store) Delete(ctx context.Context, id model.DraftID, owner model.OwnerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return model.ErrRemoteUnavailable
	}

	if _, err := s.lookup(id, owner); err != nil {
		return err
	}
	delete(s.drafts, id)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.available {
		return model.ErrRemoteUnavailable
	}
	return nil
}

// lookup must be called with the lock held
func (s *Store) lookup(id model.DraftID, owner model.OwnerID) (*model.Draft, error) {
	draft, ok := s.drafts[id]
	if !ok {
		return nil, model.ErrDraftNotFound
	}
	if draft.OwnerID != owner {
		return nil, model.ErrNotDraftOwner
	}
	return draft, nil
}
