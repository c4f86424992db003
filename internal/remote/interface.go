package remote

import (
	"context"
	"time"

	"github.com/bracketlab/draftsync/internal/model"
)

// UpdateFields carries the optional fields of a remote update.
// Nil fields are left unchanged on the remote record.
type UpdateFields struct {
	Name    *string
	Payload *model.Payload
	Status  *model.Status
}

// Store defines the interface for the remote draft store: the durability
// backstop and cross-device sync target. Every call is scoped by owner;
// a mismatched owner fails with model.ErrNotDraftOwner rather than
// returning another user's data. The store assigns ids and updatedAt
// timestamps; callers adopt what it returns.
type Store interface {
	Create(ctx context.Context, owner model.OwnerID, name string, payload model.Payload) (model.DraftID, time.Time, error)
	Update(ctx context.Context, id model.DraftID, owner model.OwnerID, fields UpdateFields) (time.Time, error)
	Get(ctx context.Context, id model.DraftID, owner model.OwnerID) (*model.Draft, error)
	ListByOwner(ctx context.Context, owner model.OwnerID) ([]*model.Draft, error)
	Delete(ctx context.Context, id model.DraftID, owner model.OwnerID) error

	// Ping reports reachability; used by the connectivity monitor's probe.
	Ping(ctx context.Context) error
}
