package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bracketlab/draftsync/internal/dependencies/clock"
	"github.com/bracketlab/draftsync/internal/model"
	"github.com/bracketlab/draftsync/internal/remote"
)

// Store is a Redis-backed implementation of the remote draft store
type Store struct {
	client *redis.Client
	clock  clock.Clock
	cfg    Config
}

// record is the wire shape of a remote draft. Sync state is a purely
// local concern and is never stored remotely.
type record struct {
	ID        model.DraftID `json:"id"`
	OwnerID   model.OwnerID `json:"owner_id"`
	Name      string        `json:"name"`
	Payload   model.Payload `json:"payload"`
	Status    model.Status  `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// New creates a new Redis store instance
func New(cfg Config, clk clock.Clock) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRemoteUnavailable, err)
	}

	return &Store{client: client, clock: clk, cfg: cfg}, nil
}

// NewWithClient creates a Redis store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, clk clock.Clock) *Store {
	return &Store{client: client, clock: clk, cfg: cfg}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ensure Store implements the interface
var _ remote.Store = (*Store)(nil)

func (s *Store) Create(ctx context.Context, owner model.OwnerID, name string, payload model.Payload) (model.DraftID, time.Time, error) {
	now := s.clock.Now().UTC()
	rec := record{
		ID:        model.DraftID(uuid.NewString()),
		OwnerID:   owner,
		Name:      name,
		Payload:   payload,
		Status:    model.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.writeRecord(ctx, rec); err != nil {
		return "", time.Time{}, err
	}
	return rec.ID, rec.UpdatedAt, nil
}

func (s *Store) Update(ctx context.Context, id model.DraftID, owner model.OwnerID, fields remote.UpdateFields) (time.Time, error) {
	rec, err := s.readRecord(ctx, id, owner)
	if err != nil {
		return time.Time{}, err
	}

	if fields.Name != nil {
		rec.Name = *fields.Name
	}
	if fields.Payload != nil {
		rec.Payload = *fields.Payload
	}
	if fields.Status != nil {
		rec.Status = *fields.Status
	}
	rec.UpdatedAt = s.clock.Now().UTC()

	if err := s.writeRecord(ctx, *rec); err != nil {
		return time.Time{}, err
	}
	return rec.UpdatedAt, nil
}

func (s *Store) Get(ctx context.Context, id model.DraftID, owner model.OwnerID) (*model.Draft, error) {
	rec, err := s.readRecord(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	return rec.toDraft(), nil
}

func (s *Store) ListByOwner(ctx context.Context, owner model.OwnerID) ([]*model.Draft, error) {
	ids, err := s.client.SMembers(ctx, ownerIndexKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRemoteUnavailable, err)
	}

	var drafts []*model.Draft
	for _, id := range ids {
		rec, err := s.readRecord(ctx, model.DraftID(id), owner)
		if err != nil {
			// The index can outlive an expired record
			if errors.Is(err, model.ErrDraftNotFound) {
				continue
			}
			return nil, err
		}
		drafts = append(drafts, rec.toDraft())
	}
	return drafts, nil
}

func (s *Store) Delete(ctx context.Context, id model.DraftID, owner model.OwnerID) error {
	rec, err := s.readRecord(ctx, id, owner)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, draftKey(id))
	pipe.SRem(ctx, ownerIndexKey(rec.OwnerID), string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", model.ErrRemoteUnavailable, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrRemoteUnavailable, err)
	}
	return nil
}

// Internals

func (s *Store) readRecord(ctx context.Context, id model.DraftID, owner model.OwnerID) (*record, error) {
	data, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrDraftNotFound
		}
		return nil, fmt.Errorf("%w: %v", model.ErrRemoteUnavailable, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.OwnerID != owner {
		return nil, model.ErrNotDraftOwner
	}
	return &rec, nil
}

func (s *Store) writeRecord(ctx context.Context, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	// Pipeline for atomic record + index write
	pipe := s.client.Pipeline()
	pipe.Set(ctx, draftKey(rec.ID), data, s.cfg.DraftTTL)
	pipe.SAdd(ctx, ownerIndexKey(rec.OwnerID), string(rec.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", model.ErrRemoteUnavailable, err)
	}
	return nil
}

func (r *record) toDraft() *model.Draft {
	return &model.Draft{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
		Payload:   r.Payload,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
