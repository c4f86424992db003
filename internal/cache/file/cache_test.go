package file

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bracketlab/draftsync/internal/model"
)

type CacheSuite struct {
	suite.Suite
	dir   string
	cache *Cache
	ctx   context.Context
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.dir = s.T().TempDir()
	cache, err := New(s.dir)
	s.Require().NoError(err)
	s.cache = cache
	s.ctx = context.Background()
}

func (s *CacheSuite) draft(id model.DraftID) *model.Draft {
	return &model.Draft{
		ID:        id,
		OwnerID:   "owner-1",
		Name:      "Spring Open",
		Payload:   model.Payload{Step: 3, Form: json.RawMessage(`{"teams":16}`)},
		Status:    model.StatusDraft,
		SyncState: model.SyncStatePending,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	}
}

func (s *CacheSuite) TestPutAndGetDraft() {
	s.Require().NoError(s.cache.PutDraft(s.ctx, s.draft("d1")))

	retrieved, err := s.cache.GetDraft(s.ctx, "d1")
	s.Require().NoError(err)
	s.Equal("Spring Open", retrieved.Name)
	s.Equal(3, retrieved.Payload.Step)
	s.JSONEq(`{"teams":16}`, string(retrieved.Payload.Form))
}

func (s *CacheSuite) TestGetDraftNotFound() {
	_, err := s.cache.GetDraft(s.ctx, "missing")
	s.ErrorIs(err, model.ErrDraftNotFound)
}

func (s *CacheSuite) TestDraftSurvivesReopen() {
	s.Require().NoError(s.cache.PutDraft(s.ctx, s.draft("d1")))

	reopened, err := New(s.dir)
	s.Require().NoError(err)

	retrieved, err := reopened.GetDraft(s.ctx, "d1")
	s.Require().NoError(err)
	s.Equal("Spring Open", retrieved.Name)
	s.Equal(model.SyncStatePending, retrieved.SyncState)
}

func (s *CacheSuite) TestConflictRevisionSurvivesReopen() {
	draft := s.draft("d1")
	draft.SyncState = model.SyncStateConflict
	draft.Conflict = &model.RemoteRevision{
		Name:      "Remote Name",
		Payload:   model.Payload{Step: 7},
		UpdatedAt: time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC),
	}
	s.Require().NoError(s.cache.PutDraft(s.ctx, draft))

	reopened, err := New(s.dir)
	s.Require().NoError(err)

	retrieved, err := reopened.GetDraft(s.ctx, "d1")
	s.Require().NoError(err)
	s.Require().NotNil(retrieved.Conflict)
	s.Equal("Remote Name", retrieved.Conflict.Name)
	s.Equal(7, retrieved.Conflict.Payload.Step)
}

func (s *CacheSuite) TestListDraftsByOwner() {
	s.Require().NoError(s.cache.PutDraft(s.ctx, s.draft("d1")))
	other := s.draft("d2")
	other.OwnerID = "owner-2"
	s.Require().NoError(s.cache.PutDraft(s.ctx, other))

	drafts, err := s.cache.ListDraftsByOwner(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.Require().Len(drafts, 1)
	s.Equal(model.DraftID("d1"), drafts[0].ID)
}

func (s *CacheSuite) TestRemoveDraft() {
	s.Require().NoError(s.cache.PutDraft(s.ctx, s.draft("d1")))

	s.Require().NoError(s.cache.RemoveDraft(s.ctx, "d1"))

	_, err := s.cache.GetDraft(s.ctx, "d1")
	s.ErrorIs(err, model.ErrDraftNotFound)
}

func (s *CacheSuite) TestRemoveMissingDraftIsNoop() {
	s.NoError(s.cache.RemoveDraft(s.ctx, "missing"))
}

func (s *CacheSuite) TestPendingDeletionsSurviveReopen() {
	s.Require().NoError(s.cache.MarkPendingDeletion(s.ctx, "owner-1", "d1"))
	s.Require().NoError(s.cache.MarkPendingDeletion(s.ctx, "owner-1", "d2"))

	reopened, err := New(s.dir)
	s.Require().NoError(err)

	ids, err := reopened.ListPendingDeletions(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.ElementsMatch([]model.DraftID{"d1", "d2"}, ids)
}

func (s *CacheSuite) TestPendingDeletionOwnerSurvivesReopen() {
	s.Require().NoError(s.cache.MarkPendingDeletion(s.ctx, "owner-1", "d1"))
	s.Require().NoError(s.cache.MarkPendingDeletion(s.ctx, "owner-2", "d2"))

	reopened, err := New(s.dir)
	s.Require().NoError(err)

	ids, err := reopened.ListPendingDeletions(s.ctx, "owner-2")
	s.Require().NoError(err)
	s.Equal([]model.DraftID{"d2"}, ids)
}

func (s *CacheSuite) TestMarkPendingDeletionIsIdempotent() {
	s.Require().NoError(s.cache.MarkPendingDeletion(s.ctx, "owner-1", "d1"))
	s.Require().NoError(s.cache.MarkPendingDeletion(s.ctx, "owner-1", "d1"))

	ids, err := s.cache.ListPendingDeletions(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.Len(ids, 1)
}

func (s *CacheSuite) TestClearPendingDeletion() {
	s.Require().NoError(s.cache.MarkPendingDeletion(s.ctx, "owner-1", "d1"))

	s.Require().NoError(s.cache.ClearPendingDeletion(s.ctx, "d1"))

	ids, err := s.cache.ListPendingDeletions(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.Empty(ids)
}
