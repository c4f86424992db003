package cache

import (
	"context"

	"github.com/bracketlab/draftsync/internal/model"
)

// Cache defines the interface for the local draft cache: the durable,
// process-local store that survives restarts and holds the authoritative
// last-known state of every draft. Only the autosave scheduler's committed
// saves and the sync engine's reconciliation writes mutate it.
type Cache interface {
	// Draft operations
	PutDraft(ctx context.Context, draft *model.Draft) error
	GetDraft(ctx context.Context, id model.DraftID) (*model.Draft, error)
	ListDraftsByOwner(ctx context.Context, owner model.OwnerID) ([]*model.Draft, error)
	RemoveDraft(ctx context.Context, id model.DraftID) error

	// Pending-deletion set: draft ids removed locally whose remote delete
	// has not yet succeeded. Durable, so delete retries survive restarts,
	// and owner-scoped, so one owner's queued deletes are only replayed
	// under that owner's own sync cycles.
	MarkPendingDeletion(ctx context.Context, owner model.OwnerID, id model.DraftID) error
	ListPendingDeletions(ctx context.Context, owner model.OwnerID) ([]model.DraftID, error)
	ClearPendingDeletion(ctx context.Context, id model.DraftID) error
}
