package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bracketlab/draftsync/internal/cache"
	"github.com/bracketlab/draftsync/internal/connectivity"
	"github.com/bracketlab/draftsync/internal/model"
	"github.com/bracketlab/draftsync/internal/remote"
)

// DefaultRemoteTimeout bounds each remote call within a cycle
const DefaultRemoteTimeout = 12 * time.Second

// Engine reconciles the local draft cache with the remote draft store.
// Within one cycle, pending local changes are pushed (and queued deletes
// retried) before remote drafts are pulled, so a draft is never
// overwritten by a stale remote copy before its own edit had a chance to
// go out. At most one cycle runs at a time; a request arriving mid-cycle
// waits for the in-flight cycle instead of starting another.
type Engine struct {
	cache   cache.Cache
	remote  remote.Store
	monitor connectivity.Monitor
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight bool
	done     chan struct{}
	cycleErr error
	lastErr  error
	owners   map[model.OwnerID]bool

	cancelSub func()
	stopped   chan struct{}
}

// New creates a sync engine. Call Start to react to connectivity
// transitions; Reconcile works either way.
func New(c cache.Cache, r remote.Store, m connectivity.Monitor, timeout time.Duration, logger *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &Engine{
		cache:   c,
		remote:  r,
		monitor: m,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "sync")),
		owners:  make(map[model.OwnerID]bool),
	}
}

// Start subscribes to the connectivity monitor and reconciles every
// known owner when the connection comes back.
func (e *Engine) Start() {
	ch, cancel := e.monitor.Subscribe()
	e.cancelSub = cancel
	e.stopped = make(chan struct{})

	go func() {
		defer close(e.stopped)
		for online := range ch {
			if !online {
				continue
			}
			e.logger.Info("online transition, reconciling")
			for _, owner := range e.knownOwners() {
				if err := e.Reconcile(context.Background(), owner); err != nil {
					e.logger.Warn("background reconciliation failed",
						slog.String("owner_id", string(owner)),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}()
}

// Close stops reacting to connectivity transitions
func (e *Engine) Close() {
	if e.cancelSub != nil {
		e.cancelSub()
		<-e.stopped
	}
}

// LastError returns the outcome of the most recent cycle, nil if it
// succeeded. Read-only projection for the status surface.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Reconcile runs one push-then-pull cycle for the owner. If a cycle is
// already in flight the call coalesces: it waits for that cycle and
// returns its outcome without starting a second one.
func (e *Engine) Reconcile(ctx context.Context, owner model.OwnerID) error {
	e.mu.Lock()
	e.owners[owner] = true
	if e.inFlight {
		done := e.done
		e.mu.Unlock()
		select {
		case <-done:
			e.mu.Lock()
			err := e.cycleErr
			e.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.inFlight = true
	done := make(chan struct{})
	e.done = done
	e.mu.Unlock()

	err := e.cycle(ctx, owner)

	e.mu.Lock()
	e.inFlight = false
	e.cycleErr = err
	e.lastErr = err
	close(done)
	e.mu.Unlock()
	return err
}

func (e *Engine) knownOwners() []model.OwnerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	owners := make([]model.OwnerID, 0, len(e.owners))
	for owner := range e.owners {
		owners = append(owners, owner)
	}
	return owners
}

func (e *Engine) cycle(ctx context.Context, owner model.OwnerID) error {
	pushErr := e.pushPending(ctx, owner)
	delErr := e.retryDeletions(ctx, owner)
	// Pulling after a failed push is safe: a draft whose pending edit
	// never went out is guarded by its SyncedAt watermark below.
	pullErr := e.pullRemote(ctx, owner)
	return errors.Join(pushErr, delErr, pullErr)
}

// pushPending sends every local-only or pending draft to the remote
// store, adopting the id and updatedAt it hands back. A draft whose
// remote copy advanced past our acknowledged watermark is marked as a
// conflict instead of being pushed over it.
func (e *Engine) pushPending(ctx context.Context, owner model.OwnerID) error {
	drafts, err := e.cache.ListDraftsByOwner(ctx, owner)
	if err != nil {
		return err
	}

	var errs []error
	for _, draft := range drafts {
		if !draft.NeedsPush() {
			continue
		}
		if err := e.pushOne(ctx, draft); err != nil {
			e.logger.Warn("push failed",
				slog.String("draft_id", string(draft.ID)),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) pushOne(ctx context.Context, draft *model.Draft) error {
	if draft.ID.IsLocalID() {
		return e.createRemote(ctx, draft)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	rd, err := e.remote.Get(callCtx, draft.ID, draft.OwnerID)
	cancel()
	if errors.Is(err, model.ErrDraftNotFound) {
		// Remote copy vanished (deleted from another device); the local
		// cache is the source of truth, so recreate it.
		return e.createRemote(ctx, draft)
	}
	if err != nil {
		return err
	}

	if rd.UpdatedAt.After(draft.SyncedAt) {
		return e.markConflict(ctx, draft, rd)
	}

	callCtx, cancel = context.WithTimeout(ctx, e.timeout)
	updatedAt, err := e.remote.Update(callCtx, draft.ID, draft.OwnerID, remote.UpdateFields{
		Name:    &draft.Name,
		Payload: &draft.Payload,
		Status:  &draft.Status,
	})
	cancel()
	if err != nil {
		return err
	}

	draft.SyncState = model.SyncStateSynced
	draft.UpdatedAt = updatedAt
	draft.SyncedAt = updatedAt
	return e.cache.PutDraft(ctx, draft)
}

// createRemote pushes a never-synced draft, re-keying the cache record
// from its provisional id to the remote-assigned one.
func (e *Engine) createRemote(ctx context.Context, draft *model.Draft) error {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	id, updatedAt, err := e.remote.Create(callCtx, draft.OwnerID, draft.Name, draft.Payload)
	cancel()
	if err != nil {
		return err
	}

	if draft.Status == model.StatusCompleted {
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		status := model.StatusCompleted
		if completedAt, err := e.remote.Update(callCtx, id, draft.OwnerID, remote.UpdateFields{Status: &status}); err == nil {
			updatedAt = completedAt
		}
		cancel()
	}

	oldID := draft.ID
	draft.ID = id
	draft.SyncState = model.SyncStateSynced
	draft.UpdatedAt = updatedAt
	draft.SyncedAt = updatedAt
	if err := e.cache.PutDraft(ctx, draft); err != nil {
		return err
	}
	if oldID != id {
		if err := e.cache.RemoveDraft(ctx, oldID); err != nil {
			return err
		}
	}
	e.logger.Info("draft id adopted",
		slog.String("local_id", string(oldID)),
		slog.String("draft_id", string(id)),
	)
	return nil
}

// retryDeletions re-issues the owner's remote deletes queued while offline
func (e *Engine) retryDeletions(ctx context.Context, owner model.OwnerID) error {
	ids, err := e.cache.ListPendingDeletions(ctx, owner)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		err := e.remote.Delete(callCtx, id, owner)
		cancel()
		if err != nil && !errors.Is(err, model.ErrDraftNotFound) {
			errs = append(errs, err)
			continue
		}
		if err := e.cache.ClearPendingDeletion(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pullRemote inserts remote drafts unknown locally and detects
// divergence on drafts known to both sides.
func (e *Engine) pullRemote(ctx context.Context, owner model.OwnerID) error {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	remoteDrafts, err := e.remote.ListByOwner(callCtx, owner)
	cancel()
	if err != nil {
		return err
	}

	pendingDeletion := make(map[model.DraftID]bool)
	if ids, err := e.cache.ListPendingDeletions(ctx, owner); err == nil {
		for _, id := range ids {
			pendingDeletion[id] = true
		}
	}

	var errs []error
	for _, rd := range remoteDrafts {
		if rd.Status == model.StatusCompleted {
			continue
		}
		// Locally deleted but the remote delete has not landed yet;
		// never resurrect it into a visible draft.
		if pendingDeletion[rd.ID] {
			continue
		}
		if err := e.mergeOne(ctx, rd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) mergeOne(ctx context.Context, rd *model.Draft) error {
	local, err := e.cache.GetDraft(ctx, rd.ID)
	if errors.Is(err, model.ErrDraftNotFound) {
		rd.SyncState = model.SyncStateSynced
		rd.SyncedAt = rd.UpdatedAt
		return e.cache.PutDraft(ctx, rd)
	}
	if err != nil {
		return err
	}

	if local.UpdatedAt.Equal(rd.UpdatedAt) && local.SyncState == model.SyncStateSynced {
		return nil
	}

	switch local.SyncState {
	case model.SyncStateSynced:
		// No local edits pending: remote wins
		rd.SyncState = model.SyncStateSynced
		rd.SyncedAt = rd.UpdatedAt
		rd.CreatedAt = local.CreatedAt
		return e.cache.PutDraft(ctx, rd)
	case model.SyncStateConflict:
		// Keep the conflict open but track the latest remote revision
		local.Conflict = &model.RemoteRevision{
			Name:      rd.Name,
			Payload:   rd.Payload,
			UpdatedAt: rd.UpdatedAt,
		}
		return e.cache.PutDraft(ctx, local)
	default:
		// Pending local edits: only a remote copy that advanced past our
		// acknowledged watermark is a conflict. An unchanged remote just
		// means the push has not landed yet.
		if !rd.UpdatedAt.After(local.SyncedAt) {
			return nil
		}
		return e.markConflict(ctx, local, rd)
	}
}

// markConflict records the diverged remote revision next to the local
// copy. Nothing is auto-merged; resolution is an explicit user decision.
func (e *Engine) markConflict(ctx context.Context, local, rd *model.Draft) error {
	local.SyncState = model.SyncStateConflict
	local.Conflict = &model.RemoteRevision{
		Name:      rd.Name,
		Payload:   rd.Payload,
		UpdatedAt: rd.UpdatedAt,
	}
	e.logger.Warn("draft conflict detected",
		slog.String("draft_id", string(local.ID)),
		slog.Time("local_updated_at", local.UpdatedAt),
		slog.Time("remote_updated_at", rd.UpdatedAt),
	)
	return e.cache.PutDraft(ctx, local)
}
