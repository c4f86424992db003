package memory

import (
	"context"
	"sync"

	"github.com/bracketlab/draftsync/internal/cache"
	"github.com/bracketlab/draftsync/internal/model"
)

// Cache is an in-memory implementation of the local draft cache.
// Not durable across restarts; used in tests and as the default backend.
type Cache struct {
	mu sync.RWMutex

	drafts           map[model.DraftID]*model.Draft
	pendingDeletions map[model.DraftID]model.OwnerID
}

// New creates a new in-memory cache instance
func New() *Cache {
	return &Cache{
		drafts:           make(map[model.DraftID]*model.Draft),
		pendingDeletions: make(map[model.DraftID]model.OwnerID),
	}
}

// Ensure Cache implements the interface
var _ cache.Cache = (*Cache)(nil)

// Draft operations

// PutDraft stores a copy of the draft, so callers cannot mutate cached
// state after the call returns.
func (c *Cache) PutDraft(ctx context.Context, draft *model.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drafts[draft.ID] = draft.Clone()
	return nil
}

func (c *Cache) GetDraft(ctx context.Context, id model.DraftID) (*model.Draft, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	draft, ok := c.drafts[id]
	if !ok {
		return nil, model.ErrDraftNotFound
	}
	return draft.Clone(), nil
}

func (c *Cache) ListDraftsByOwner(ctx context.Context, owner model.OwnerID) ([]*model.Draft, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var drafts []*model.Draft
	for _, draft := range c.drafts {
		if draft.OwnerID == owner {
			drafts = append(drafts, draft.Clone())
		}
	}
	return drafts, nil
}

func (c *Cache) RemoveDraft(ctx context.Context, id model.DraftID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.drafts, id)
	return nil
}

// Pending-deletion operations

func (c *Cache) MarkPendingDeletion(ctx context.Context, owner model.OwnerID, id model.DraftID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingDeletions[id] = owner
	return nil
}

func (c *Cache) ListPendingDeletions(ctx context.Context, owner model.OwnerID) ([]model.DraftID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []model.DraftID
	for id, o := range c.pendingDeletions {
		if o == owner {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Cache) ClearPendingDeletion(ctx context.Context, id model.DraftID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pendingDeletions, id)
	return nil
}
