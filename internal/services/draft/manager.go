package draft

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bracketlab/draftsync/internal/audit"
	"github.com/bracketlab/draftsync/internal/cache"
	"github.com/bracketlab/draftsync/internal/connectivity"
	"github.com/bracketlab/draftsync/internal/dependencies/clock"
	"github.com/bracketlab/draftsync/internal/model"
	"github.com/bracketlab/draftsync/internal/services/autosave"
)

// Reconciler runs reconciliation cycles; satisfied by the sync engine
type Reconciler interface {
	Reconcile(ctx context.Context, owner model.OwnerID) error
	LastError() error
}

// DefaultListTimeout bounds the reconciliation attempt inside ListDrafts
const DefaultListTimeout = 15 * time.Second

// Config holds manager timing settings
type Config struct {
	// QuietWindow is the autosave debounce window
	QuietWindow time.Duration
	// ListTimeout bounds reconciliation during ListDrafts
	ListTimeout time.Duration
}

// DefaultConfig returns sensible manager defaults
func DefaultConfig() Config {
	return Config{
		QuietWindow: autosave.DefaultQuietWindow,
		ListTimeout: DefaultListTimeout,
	}
}

// Status is the read-only projection of internal state for UI display
type Status struct {
	IsSaving  bool      `json:"is_saving"`
	LastSaved time.Time `json:"last_saved"`
	IsOnline  bool      `json:"is_online"`
	Error     string    `json:"error,omitempty"`
}

// Manager is the draft lifecycle facade: the single entry point the rest
// of the application uses to list, save, rename, complete, delete, and
// recover drafts. Owner identity is an explicit argument to every call;
// the manager holds no ambient session state.
type Manager struct {
	cache     cache.Cache
	engine    Reconciler
	scheduler *autosave.Scheduler
	monitor   connectivity.Monitor
	audit     audit.Recorder
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger
}

// NewManager creates the facade and its autosave scheduler
func NewManager(
	c cache.Cache,
	engine Reconciler,
	monitor connectivity.Monitor,
	recorder audit.Recorder,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = DefaultListTimeout
	}
	m := &Manager{
		cache:   c,
		engine:  engine,
		monitor: monitor,
		audit:   recorder,
		clock:   clk,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "drafts")),
	}
	m.scheduler = autosave.New(m.autosaveCommit, clk, cfg.QuietWindow, logger)
	return m
}

// Close cancels pending autosave timers
func (m *Manager) Close() {
	m.scheduler.Close()
}

// ListDrafts triggers one reconciliation cycle and returns the owner's
// non-completed drafts, newest first. Fails closed: if reconciliation
// does not succeed the best-known local list is returned.
func (m *Manager) ListDrafts(ctx context.Context, owner model.OwnerID) ([]*model.Draft, error) {
	if owner == "" {
		return nil, model.ErrNotAuthenticated
	}

	syncCtx, cancel := context.WithTimeout(ctx, m.cfg.ListTimeout)
	if err := m.engine.Reconcile(syncCtx, owner); err != nil {
		m.logger.Warn("reconciliation failed, returning local list",
			slog.String("owner_id", string(owner)),
			slog.String("error", err.Error()),
		)
	}
	cancel()

	return m.localList(ctx, owner)
}

// CheckForExistingDrafts returns the owner's non-completed drafts from
// the local cache only, used to decide whether to prompt recovery on
// session start.
func (m *Manager) CheckForExistingDrafts(ctx context.Context, owner model.OwnerID) ([]*model.Draft, error) {
	if owner == "" {
		return nil, model.ErrNotAuthenticated
	}
	return m.localList(ctx, owner)
}

// Save creates or updates a draft. The local write is synchronous; the
// remote push is scheduled asynchronously. Returns the draft id, which
// is provisional until the first successful remote create.
func (m *Manager) Save(ctx context.Context, owner model.OwnerID, id model.DraftID, payload model.Payload, name string) (model.DraftID, error) {
	if owner == "" {
		return "", model.ErrNotAuthenticated
	}

	if id == "" {
		return m.create(ctx, owner, payload, name)
	}

	draft, err := m.getOwned(ctx, owner, id)
	if err != nil {
		return "", err
	}
	if draft.Status == model.StatusCompleted {
		return "", model.ErrDraftCompleted
	}

	draft.Payload = payload
	if name != "" {
		draft.Name = name
	}
	m.touch(draft)

	if err := m.cache.PutDraft(ctx, draft); err != nil {
		return "", err
	}
	m.audit.Record(ctx, model.AuditDraftUpdated, map[string]any{
		"draft_id": string(draft.ID),
		"step":     draft.Payload.Step,
	})
	m.syncAsync(owner)
	return draft.ID, nil
}

// LoadDraft returns the current local copy without a remote round-trip
func (m *Manager) LoadDraft(ctx context.Context, owner model.OwnerID, id model.DraftID) (*model.Draft, error) {
	if owner == "" {
		return nil, model.ErrNotAuthenticated
	}
	draft, err := m.getOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	m.audit.Record(ctx, model.AuditDraftResumed, map[string]any{
		"draft_id": string(draft.ID),
		"step":     draft.Payload.Step,
	})
	return draft, nil
}

// RenameDraft sets a new user-facing label. Empty and whitespace-only
// names are rejected before any write.
func (m *Manager) RenameDraft(ctx context.Context, owner model.OwnerID, id model.DraftID, newName string) error {
	if owner == "" {
		return model.ErrNotAuthenticated
	}
	if strings.TrimSpace(newName) == "" {
		return model.ErrEmptyName
	}

	draft, err := m.getOwned(ctx, owner, id)
	if err != nil {
		return err
	}

	draft.Name = newName
	m.touch(draft)

	if err := m.cache.PutDraft(ctx, draft); err != nil {
		return err
	}
	m.audit.Record(ctx, model.AuditDraftUpdated, map[string]any{
		"draft_id": string(draft.ID),
		"name":     newName,
	})
	m.syncAsync(owner)
	return nil
}

// CompleteDraft marks the draft completed. The transition is one-way and
// the call is idempotent: completing an already-completed draft is a
// no-op with no duplicate audit event.
func (m *Manager) CompleteDraft(ctx context.Context, owner model.OwnerID, id model.DraftID) error {
	if owner == "" {
		return model.ErrNotAuthenticated
	}

	draft, err := m.getOwned(ctx, owner, id)
	if err != nil {
		return err
	}
	if draft.Status == model.StatusCompleted {
		return nil
	}

	draft.Status = model.StatusCompleted
	m.touch(draft)

	if err := m.cache.PutDraft(ctx, draft); err != nil {
		return err
	}
	m.audit.Record(ctx, model.AuditDraftCompleted, map[string]any{
		"draft_id": string(draft.ID),
	})
	m.syncAsync(owner)
	return nil
}

// DeleteDraft removes the draft locally right away so the UI reflects
// the deletion instantly; the remote delete is queued and retried by
// reconciliation until it lands.
func (m *Manager) DeleteDraft(ctx context.Context, owner model.OwnerID, id model.DraftID) error {
	return m.delete(ctx, owner, id, model.AuditDraftDeleted)
}

// DiscardDraft deletes a draft from the recovery prompt. Same semantics
// as DeleteDraft under a distinct audit action.
func (m *Manager) DiscardDraft(ctx context.Context, owner model.OwnerID, id model.DraftID) error {
	return m.delete(ctx, owner, id, model.AuditDraftDiscarded)
}

// ResolveConflict applies the user's decision for a draft whose local
// and remote copies diverged. Never last-write-wins on its own.
func (m *Manager) ResolveConflict(ctx context.Context, owner model.OwnerID, id model.DraftID, resolution model.Resolution) error {
	if owner == "" {
		return model.ErrNotAuthenticated
	}
	if !resolution.Valid() {
		return model.ErrNoConflict
	}

	draft, err := m.getOwned(ctx, owner, id)
	if err != nil {
		return err
	}
	if draft.SyncState != model.SyncStateConflict || draft.Conflict == nil {
		return model.ErrNoConflict
	}
	rev := draft.Conflict

	switch resolution {
	case model.ResolutionKeepLocal:
		// Acknowledge the remote revision so the next push replaces it
		draft.SyncState = model.SyncStatePending
		draft.SyncedAt = rev.UpdatedAt
		draft.Conflict = nil
		draft.UpdatedAt = m.clock.Now().UTC()
		if err := m.cache.PutDraft(ctx, draft); err != nil {
			return err
		}

	case model.ResolutionKeepRemote:
		draft.Name = rev.Name
		draft.Payload = rev.Payload
		draft.UpdatedAt = rev.UpdatedAt
		draft.SyncedAt = rev.UpdatedAt
		draft.SyncState = model.SyncStateSynced
		draft.Conflict = nil
		if err := m.cache.PutDraft(ctx, draft); err != nil {
			return err
		}

	case model.ResolutionKeepBoth:
		// Remote revision stays under the original id; the local edits
		// fork into a fresh draft so neither side is lost.
		fork := &model.Draft{
			ID:        m.newLocalID(),
			OwnerID:   owner,
			Name:      draft.Name + " (recovered copy)",
			Payload:   draft.Payload,
			Status:    model.StatusDraft,
			SyncState: model.SyncStateLocalOnly,
			CreatedAt: m.clock.Now().UTC(),
			UpdatedAt: m.clock.Now().UTC(),
		}
		draft.Name = rev.Name
		draft.Payload = rev.Payload
		draft.UpdatedAt = rev.UpdatedAt
		draft.SyncedAt = rev.UpdatedAt
		draft.SyncState = model.SyncStateSynced
		draft.Conflict = nil
		if err := m.cache.PutDraft(ctx, draft); err != nil {
			return err
		}
		if err := m.cache.PutDraft(ctx, fork); err != nil {
			return err
		}
	}

	m.audit.Record(ctx, model.AuditDraftConflictResolved, map[string]any{
		"draft_id":   string(id),
		"resolution": string(resolution),
	})
	m.syncAsync(owner)
	return nil
}

// NotifyChange feeds a draft mutation into the autosave scheduler.
// Called at arbitrary rate; persistence happens after the quiet window.
func (m *Manager) NotifyChange(owner model.OwnerID, id model.DraftID, payload model.Payload) {
	m.scheduler.NotifyChange(owner, id, payload)
}

// FlushAutosave commits any pending change for the draft immediately,
// for navigation-away.
func (m *Manager) FlushAutosave(id model.DraftID) {
	m.scheduler.Flush(id)
}

// SyncNow runs a reconciliation cycle and surfaces its error to the
// caller as a transient, retryable failure.
func (m *Manager) SyncNow(ctx context.Context, owner model.OwnerID) error {
	if owner == "" {
		return model.ErrNotAuthenticated
	}
	return m.engine.Reconcile(ctx, owner)
}

// Status returns the UI-facing projection of saver and sync state
func (m *Manager) Status() Status {
	s := Status{
		IsSaving:  m.scheduler.IsSaving(),
		LastSaved: m.scheduler.LastSaved(),
		IsOnline:  m.monitor.IsOnline(),
	}
	if err := m.scheduler.LastError(); err != nil {
		s.Error = err.Error()
	} else if err := m.engine.LastError(); err != nil {
		s.Error = err.Error()
	}
	return s
}

// Internals

func (m *Manager) create(ctx context.Context, owner model.OwnerID, payload model.Payload, name string) (model.DraftID, error) {
	if name == "" {
		name = model.DefaultDraftName
	}
	now := m.clock.Now().UTC()
	draft := &model.Draft{
		ID:        m.newLocalID(),
		OwnerID:   owner,
		Name:      name,
		Payload:   payload,
		Status:    model.StatusDraft,
		SyncState: model.SyncStateLocalOnly,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.cache.PutDraft(ctx, draft); err != nil {
		return "", err
	}
	m.audit.Record(ctx, model.AuditDraftCreated, map[string]any{
		"draft_id": string(draft.ID),
		"name":     draft.Name,
	})
	m.syncAsync(owner)
	return draft.ID, nil
}

func (m *Manager) delete(ctx context.Context, owner model.OwnerID, id model.DraftID, action string) error {
	if owner == "" {
		return model.ErrNotAuthenticated
	}

	draft, err := m.getOwned(ctx, owner, id)
	if errors.Is(err, model.ErrDraftNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := m.cache.RemoveDraft(ctx, id); err != nil {
		return err
	}
	// Provisional ids never reached the remote store
	if !id.IsLocalID() {
		if err := m.cache.MarkPendingDeletion(ctx, owner, id); err != nil {
			return err
		}
	}
	m.audit.Record(ctx, action, map[string]any{
		"draft_id": string(draft.ID),
		"name":     draft.Name,
	})
	m.syncAsync(owner)
	return nil
}

// autosaveCommit is the scheduler's save function: an update-only Save
// that keeps the draft's name untouched.
func (m *Manager) autosaveCommit(ctx context.Context, owner model.OwnerID, id model.DraftID, payload model.Payload) error {
	_, err := m.Save(ctx, owner, id, payload, "")
	return err
}

func (m *Manager) getOwned(ctx context.Context, owner model.OwnerID, id model.DraftID) (*model.Draft, error) {
	draft, err := m.cache.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.OwnerID != owner {
		return nil, model.ErrNotDraftOwner
	}
	return draft, nil
}

func (m *Manager) localList(ctx context.Context, owner model.OwnerID) ([]*model.Draft, error) {
	drafts, err := m.cache.ListDraftsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	resumable := drafts[:0]
	for _, d := range drafts {
		if d.Resumable() {
			resumable = append(resumable, d)
		}
	}
	sort.Slice(resumable, func(i, j int) bool {
		return resumable[i].UpdatedAt.After(resumable[j].UpdatedAt)
	})
	return resumable, nil
}

// touch bumps the local timestamp and flags the draft for push. A draft
// already in conflict stays in conflict until the user resolves it; a
// never-synced draft stays local-only.
func (m *Manager) touch(draft *model.Draft) {
	draft.UpdatedAt = m.clock.Now().UTC()
	switch draft.SyncState {
	case model.SyncStateConflict, model.SyncStateLocalOnly:
	default:
		draft.SyncState = model.SyncStatePending
	}
}

func (m *Manager) syncAsync(owner model.OwnerID) {
	go func() {
		if err := m.engine.Reconcile(context.Background(), owner); err != nil {
			m.logger.Debug("async push incomplete, will retry",
				slog.String("owner_id", string(owner)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (m *Manager) newLocalID() model.DraftID {
	return model.DraftID(model.LocalIDPrefix + uuid.NewString())
}
