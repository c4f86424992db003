package draft

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bracketlab/draftsync/internal/audit"
	memorycache "github.com/bracketlab/draftsync/internal/cache/memory"
	"github.com/bracketlab/draftsync/internal/connectivity"
	"github.com/bracketlab/draftsync/internal/dependencies/mocks"
	"github.com/bracketlab/draftsync/internal/model"
	"github.com/bracketlab/draftsync/internal/testutil"
)

const testOwner = model.OwnerID("owner-1")

// fakeReconciler counts cycles without touching any store
type fakeReconciler struct {
	mu      sync.Mutex
	cycles  int
	err     error
	lastErr error
}

func (f *fakeReconciler) Reconcile(ctx context.Context, owner model.OwnerID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles++
	f.lastErr = f.err
	return f.err
}

func (f *fakeReconciler) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *fakeReconciler) cycleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycles
}

func (f *fakeReconciler) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type ManagerSuite struct {
	suite.Suite
	cache      *memorycache.Cache
	reconciler *fakeReconciler
	monitor    *connectivity.ManualMonitor
	clock      *mocks.MockClock
	manager    *Manager
	ctx        context.Context
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.cache = memorycache.New()
	s.reconciler = &fakeReconciler{}
	s.monitor = connectivity.NewManual(true)
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.manager = NewManager(s.cache, s.reconciler, s.monitor, audit.NewNopRecorder(), s.clock, DefaultConfig(), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.Close()
	s.monitor.Close()
}

func (s *ManagerSuite) createDraft(name string, step int) model.DraftID {
	id, err := s.manager.Save(s.ctx, testOwner, "", model.Payload{Step: step}, name)
	s.Require().NoError(err)
	return id
}

func (s *ManagerSuite) getDraft(id model.DraftID) *model.Draft {
	draft, err := s.cache.GetDraft(s.ctx, id)
	s.Require().NoError(err)
	return draft
}

// Save tests

func (s *ManagerSuite) TestCreateAssignsProvisionalID() {
	id := s.createDraft("Spring Open", 1)

	s.True(id.IsLocalID())
	draft := s.getDraft(id)
	s.Equal("Spring Open", draft.Name)
	s.Equal(model.StatusDraft, draft.Status)
	s.Equal(model.SyncStateLocalOnly, draft.SyncState)
	s.Equal(testOwner, draft.OwnerID)
}

func (s *ManagerSuite) TestCreateWithoutNameUsesDefault() {
	id := s.createDraft("", 0)

	s.Equal(model.DefaultDraftName, s.getDraft(id).Name)
}

func (s *ManagerSuite) TestCreateWorksOffline() {
	s.monitor.SetOnline(false)
	s.reconciler.setErr(model.ErrRemoteUnavailable)

	id := s.createDraft("Offline Draft", 2)

	s.Equal(2, s.getDraft(id).Payload.Step)
}

func (s *ManagerSuite) TestSaveUpdatesPayload() {
	id := s.createDraft("Spring Open", 1)

	s.clock.Advance(time.Minute)
	_, err := s.manager.Save(s.ctx, testOwner, id, model.Payload{Step: 3}, "")
	s.Require().NoError(err)

	draft := s.getDraft(id)
	s.Equal(3, draft.Payload.Step)
	s.Equal("Spring Open", draft.Name)
}

func (s *ManagerSuite) TestSaveRequiresOwner() {
	_, err := s.manager.Save(s.ctx, "", "", model.Payload{}, "")
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *ManagerSuite) TestSaveUnknownDraftFails() {
	_, err := s.manager.Save(s.ctx, testOwner, "missing", model.Payload{}, "")
	s.ErrorIs(err, model.ErrDraftNotFound)
}

func (s *ManagerSuite) TestSaveRejectsOtherOwnersDraft() {
	id := s.createDraft("Spring Open", 1)

	_, err := s.manager.Save(s.ctx, "intruder", id, model.Payload{Step: 9}, "")
	s.ErrorIs(err, model.ErrNotDraftOwner)
}

func (s *ManagerSuite) TestSaveRejectsCompletedDraft() {
	id := s.createDraft("Spring Open", 1)
	s.Require().NoError(s.manager.CompleteDraft(s.ctx, testOwner, id))

	_, err := s.manager.Save(s.ctx, testOwner, id, model.Payload{Step: 9}, "")
	s.ErrorIs(err, model.ErrDraftCompleted)
}

func (s *ManagerSuite) TestSaveMarksSyncedDraftPending() {
	id := s.createDraft("Spring Open", 1)
	draft := s.getDraft(id)
	draft.SyncState = model.SyncStateSynced
	s.Require().NoError(s.cache.PutDraft(s.ctx, draft))

	_, err := s.manager.Save(s.ctx, testOwner, id, model.Payload{Step: 2}, "")
	s.Require().NoError(err)

	s.Equal(model.SyncStatePending, s.getDraft(id).SyncState)
}

// List and recovery tests

func (s *ManagerSuite) TestListDraftsNewestFirst() {
	first := s.createDraft("First", 1)
	s.clock.Advance(time.Minute)
	second := s.createDraft("Second", 1)

	drafts, err := s.manager.ListDrafts(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Require().Len(drafts, 2)
	s.Equal(second, drafts[0].ID)
	s.Equal(first, drafts[1].ID)
}

func (s *ManagerSuite) TestListDraftsTriggersReconciliation() {
	before := s.reconciler.cycleCount()

	_, err := s.manager.ListDrafts(s.ctx, testOwner)
	s.Require().NoError(err)

	s.Greater(s.reconciler.cycleCount(), before)
}

func (s *ManagerSuite) TestListDraftsFallsBackToLocalOnSyncFailure() {
	id := s.createDraft("Spring Open", 1)
	s.reconciler.setErr(model.ErrRemoteUnavailable)

	drafts, err := s.manager.ListDrafts(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Require().Len(drafts, 1)
	s.Equal(id, drafts[0].ID)
}

func (s *ManagerSuite) TestListDraftsExcludesCompleted() {
	s.createDraft("Active", 1)
	done := s.createDraft("Done", 5)
	s.Require().NoError(s.manager.CompleteDraft(s.ctx, testOwner, done))

	drafts, err := s.manager.ListDrafts(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Require().Len(drafts, 1)
	s.Equal("Active", drafts[0].Name)
}

func (s *ManagerSuite) TestListDraftsScopedToOwner() {
	s.createDraft("Mine", 1)
	_, err := s.manager.Save(s.ctx, "other-owner", "", model.Payload{Step: 1}, "Theirs")
	s.Require().NoError(err)

	drafts, err := s.manager.ListDrafts(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Require().Len(drafts, 1)
	s.Equal("Mine", drafts[0].Name)
}

func (s *ManagerSuite) TestCheckForExistingDraftsIsLocalOnly() {
	s.createDraft("Spring Open", 1)
	before := s.reconciler.cycleCount()

	drafts, err := s.manager.CheckForExistingDrafts(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Len(drafts, 1)
	// No remote round-trip on session start
	s.Equal(before, s.reconciler.cycleCount())
}

func (s *ManagerSuite) TestCheckForExistingDraftsEmptyWhenNone() {
	drafts, err := s.manager.CheckForExistingDrafts(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Empty(drafts)
}

// Load tests

func (s *ManagerSuite) TestLoadDraftReturnsLocalCopy() {
	id := s.createDraft("Spring Open", 4)

	draft, err := s.manager.LoadDraft(s.ctx, testOwner, id)
	s.Require().NoError(err)
	s.Equal(4, draft.Payload.Step)
}

func (s *ManagerSuite) TestLoadDraftRejectsOtherOwner() {
	id := s.createDraft("Spring Open", 1)

	_, err := s.manager.LoadDraft(s.ctx, "intruder", id)
	s.ErrorIs(err, model.ErrNotDraftOwner)
}

// Rename tests

func (s *ManagerSuite) TestRenameDraft() {
	id := s.createDraft("Old Name", 1)

	s.Require().NoError(s.manager.RenameDraft(s.ctx, testOwner, id, "New Name"))

	s.Equal("New Name", s.getDraft(id).Name)
}

func (s *ManagerSuite) TestRenameRejectsEmptyName() {
	id := s.createDraft("Old Name", 1)

	s.ErrorIs(s.manager.RenameDraft(s.ctx, testOwner, id, ""), model.ErrEmptyName)
	s.ErrorIs(s.manager.RenameDraft(s.ctx, testOwner, id, "   "), model.ErrEmptyName)
	s.Equal("Old Name", s.getDraft(id).Name)
}

// Complete tests

func (s *ManagerSuite) TestCompleteDraft() {
	id := s.createDraft("Spring Open", 6)

	s.Require().NoError(s.manager.CompleteDraft(s.ctx, testOwner, id))

	s.Equal(model.StatusCompleted, s.getDraft(id).Status)
}

func (s *ManagerSuite) TestCompleteDraftIsIdempotent() {
	id := s.createDraft("Spring Open", 6)
	s.Require().NoError(s.manager.CompleteDraft(s.ctx, testOwner, id))
	completedAt := s.getDraft(id).UpdatedAt

	s.clock.Advance(time.Minute)
	s.Require().NoError(s.manager.CompleteDraft(s.ctx, testOwner, id))

	s.Equal(completedAt, s.getDraft(id).UpdatedAt)
}

// Delete tests

func (s *ManagerSuite) TestDeleteRemovesLocallyAndQueuesRemote() {
	id := s.createDraft("Spring Open", 1)
	// Simulate a draft that reached the remote store
	draft := s.getDraft(id)
	draft.ID = "remote-1"
	draft.SyncState = model.SyncStateSynced
	s.Require().NoError(s.cache.PutDraft(s.ctx, draft))

	s.Require().NoError(s.manager.DeleteDraft(s.ctx, testOwner, "remote-1"))

	_, err := s.cache.GetDraft(s.ctx, "remote-1")
	s.ErrorIs(err, model.ErrDraftNotFound)

	ids, err := s.cache.ListPendingDeletions(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Contains(ids, model.DraftID("remote-1"))
}

func (s *ManagerSuite) TestDeleteLocalOnlyDraftSkipsRemoteQueue() {
	id := s.createDraft("Spring Open", 1)

	s.Require().NoError(s.manager.DeleteDraft(s.ctx, testOwner, id))

	ids, err := s.cache.ListPendingDeletions(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *ManagerSuite) TestDeleteMissingDraftIsNoop() {
	s.NoError(s.manager.DeleteDraft(s.ctx, testOwner, "missing"))
}

func (s *ManagerSuite) TestDeleteRejectsOtherOwner() {
	id := s.createDraft("Spring Open", 1)

	s.ErrorIs(s.manager.DeleteDraft(s.ctx, "intruder", id), model.ErrNotDraftOwner)
	_, err := s.cache.GetDraft(s.ctx, id)
	s.NoError(err)
}

func (s *ManagerSuite) TestDiscardDraftDeletes() {
	id := s.createDraft("Spring Open", 1)

	s.Require().NoError(s.manager.DiscardDraft(s.ctx, testOwner, id))

	_, err := s.cache.GetDraft(s.ctx, id)
	s.ErrorIs(err, model.ErrDraftNotFound)
}

// Conflict resolution tests

func (s *ManagerSuite) conflictedDraft() model.DraftID {
	draft := &model.Draft{
		ID:        "remote-1",
		OwnerID:   testOwner,
		Name:      "Local Name",
		Payload:   model.Payload{Step: 3},
		Status:    model.StatusDraft,
		SyncState: model.SyncStateConflict,
		CreatedAt: s.clock.Now().Add(-time.Hour),
		UpdatedAt: s.clock.Now(),
		SyncedAt:  s.clock.Now().Add(-30 * time.Minute),
		Conflict: &model.RemoteRevision{
			Name:      "Remote Name",
			Payload:   model.Payload{Step: 8},
			UpdatedAt: s.clock.Now().Add(-time.Minute),
		},
	}
	s.Require().NoError(s.cache.PutDraft(s.ctx, draft))
	return draft.ID
}

func (s *ManagerSuite) TestResolveKeepLocal() {
	id := s.conflictedDraft()

	s.Require().NoError(s.manager.ResolveConflict(s.ctx, testOwner, id, model.ResolutionKeepLocal))

	draft := s.getDraft(id)
	s.Equal(model.SyncStatePending, draft.SyncState)
	s.Equal("Local Name", draft.Name)
	s.Equal(3, draft.Payload.Step)
	s.Nil(draft.Conflict)
	// The remote revision is acknowledged so the next push replaces it
	s.Equal(s.clock.Now().Add(-time.Minute), draft.SyncedAt)
}

func (s *ManagerSuite) TestResolveKeepRemote() {
	id := s.conflictedDraft()

	s.Require().NoError(s.manager.ResolveConflict(s.ctx, testOwner, id, model.ResolutionKeepRemote))

	draft := s.getDraft(id)
	s.Equal(model.SyncStateSynced, draft.SyncState)
	s.Equal("Remote Name", draft.Name)
	s.Equal(8, draft.Payload.Step)
	s.Nil(draft.Conflict)
}

func (s *ManagerSuite) TestResolveKeepBothForksLocalCopy() {
	id := s.conflictedDraft()

	s.Require().NoError(s.manager.ResolveConflict(s.ctx, testOwner, id, model.ResolutionKeepBoth))

	// Original id carries the remote revision
	draft := s.getDraft(id)
	s.Equal("Remote Name", draft.Name)
	s.Equal(8, draft.Payload.Step)
	s.Equal(model.SyncStateSynced, draft.SyncState)

	// Local edits live on in a fresh local-only draft
	drafts, err := s.cache.ListDraftsByOwner(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Require().Len(drafts, 2)
	var fork *model.Draft
	for _, d := range drafts {
		if d.ID != id {
			fork = d
		}
	}
	s.Require().NotNil(fork)
	s.True(fork.ID.IsLocalID())
	s.Equal("Local Name (recovered copy)", fork.Name)
	s.Equal(3, fork.Payload.Step)
	s.Equal(model.SyncStateLocalOnly, fork.SyncState)
}

func (s *ManagerSuite) TestResolveWithoutConflictFails() {
	id := s.createDraft("Spring Open", 1)

	s.ErrorIs(s.manager.ResolveConflict(s.ctx, testOwner, id, model.ResolutionKeepLocal), model.ErrNoConflict)
}

func (s *ManagerSuite) TestResolveRejectsUnknownResolution() {
	id := s.conflictedDraft()

	s.ErrorIs(s.manager.ResolveConflict(s.ctx, testOwner, id, "merge"), model.ErrNoConflict)
}

// Autosave integration

func (s *ManagerSuite) TestNotifyChangePersistsAfterQuietWindow() {
	id := s.createDraft("Spring Open", 1)

	s.manager.NotifyChange(testOwner, id, model.Payload{Step: 2})
	s.Equal(1, s.getDraft(id).Payload.Step)

	s.clock.Advance(DefaultConfig().QuietWindow)

	s.Equal(2, s.getDraft(id).Payload.Step)
}

func (s *ManagerSuite) TestFlushAutosaveCommitsImmediately() {
	id := s.createDraft("Spring Open", 1)

	s.manager.NotifyChange(testOwner, id, model.Payload{Step: 5})
	s.manager.FlushAutosave(id)

	s.Equal(5, s.getDraft(id).Payload.Step)
}

// Sync and status

func (s *ManagerSuite) TestSyncNowSurfacesFailure() {
	s.reconciler.setErr(model.ErrRemoteUnavailable)

	s.ErrorIs(s.manager.SyncNow(s.ctx, testOwner), model.ErrRemoteUnavailable)
}

func (s *ManagerSuite) TestStatusReflectsConnectivity() {
	s.True(s.manager.Status().IsOnline)

	s.monitor.SetOnline(false)
	s.False(s.manager.Status().IsOnline)
}

func (s *ManagerSuite) TestStatusCarriesSyncError() {
	s.reconciler.setErr(model.ErrRemoteUnavailable)
	_ = s.manager.SyncNow(s.ctx, testOwner)

	s.Contains(s.manager.Status().Error, model.ErrRemoteUnavailable.Error())
}
