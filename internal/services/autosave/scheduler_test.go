package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bracketlab/draftsync/internal/dependencies/mocks"
	"github.com/bracketlab/draftsync/internal/model"
	"github.com/bracketlab/draftsync/internal/testutil"
)

type SchedulerSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	scheduler *Scheduler

	mu    sync.Mutex
	saves []savedPayload
	errs  map[model.DraftID]error
}

type savedPayload struct {
	owner   model.OwnerID
	id      model.DraftID
	payload model.Payload
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.saves = nil
	s.errs = make(map[model.DraftID]error)
	s.scheduler = New(s.recordSave, s.clock, time.Second, testutil.NopLogger())
}

func (s *SchedulerSuite) TearDownTest() {
	s.scheduler.Close()
}

func (s *SchedulerSuite) recordSave(ctx context.Context, owner model.OwnerID, id model.DraftID, payload model.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[id]; err != nil {
		return err
	}
	s.saves = append(s.saves, savedPayload{owner: owner, id: id, payload: payload})
	return nil
}

func (s *SchedulerSuite) savedPayloads() []savedPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]savedPayload(nil), s.saves...)
}

func (s *SchedulerSuite) TestNoSaveBeforeQuietWindow() {
	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})

	s.clock.Advance(900 * time.Millisecond)

	s.Empty(s.savedPayloads())
}

func (s *SchedulerSuite) TestSaveAfterQuietWindow() {
	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})

	s.clock.Advance(time.Second)

	saves := s.savedPayloads()
	s.Require().Len(saves, 1)
	s.Equal(model.OwnerID("owner-1"), saves[0].owner)
	s.Equal(model.DraftID("draft-1"), saves[0].id)
	s.Equal(1, saves[0].payload.Step)
}

func (s *SchedulerSuite) TestBurstCollapsesToLastPayload() {
	for step := 1; step <= 5; step++ {
		s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: step})
		s.clock.Advance(100 * time.Millisecond)
	}

	s.Empty(s.savedPayloads())

	s.clock.Advance(time.Second)

	saves := s.savedPayloads()
	s.Require().Len(saves, 1)
	s.Equal(5, saves[0].payload.Step)
}

func (s *SchedulerSuite) TestChangeResetsQuietWindow() {
	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})
	s.clock.Advance(900 * time.Millisecond)

	// A new change before the window elapses re-arms it
	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 2})
	s.clock.Advance(900 * time.Millisecond)
	s.Empty(s.savedPayloads())

	s.clock.Advance(100 * time.Millisecond)
	saves := s.savedPayloads()
	s.Require().Len(saves, 1)
	s.Equal(2, saves[0].payload.Step)
}

func (s *SchedulerSuite) TestDistinctDraftsSaveIndependently() {
	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})
	s.scheduler.NotifyChange("owner-1", "draft-2", model.Payload{Step: 7})

	s.clock.Advance(time.Second)

	saves := s.savedPayloads()
	s.Require().Len(saves, 2)
	ids := []model.DraftID{saves[0].id, saves[1].id}
	s.Contains(ids, model.DraftID("draft-1"))
	s.Contains(ids, model.DraftID("draft-2"))
}

func (s *SchedulerSuite) TestFlushCommitsImmediately() {
	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 3})

	s.scheduler.Flush("draft-1")

	saves := s.savedPayloads()
	s.Require().Len(saves, 1)
	s.Equal(3, saves[0].payload.Step)

	// The cancelled timer must not produce a second save
	s.clock.Advance(2 * time.Second)
	s.Len(s.savedPayloads(), 1)
}

func (s *SchedulerSuite) TestFlushWithNothingPendingIsNoop() {
	s.scheduler.Flush("draft-1")
	s.Empty(s.savedPayloads())
}

func (s *SchedulerSuite) TestBurstDuringInFlightSaveIsQueued() {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var steps []int

	save := func(ctx context.Context, owner model.OwnerID, id model.DraftID, payload model.Payload) error {
		mu.Lock()
		steps = append(steps, payload.Step)
		first := len(steps) == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return nil
	}
	scheduler := New(save, s.clock, time.Second, testutil.NopLogger())
	defer scheduler.Close()

	scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})
	flushed := make(chan struct{})
	go func() {
		scheduler.Flush("draft-1")
		close(flushed)
	}()
	<-started
	s.True(scheduler.IsSaving())

	// A second burst completes while the first save is in flight; it must
	// not start a concurrent save, and must not be dropped either
	scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 2})
	scheduler.Flush("draft-1")

	mu.Lock()
	s.Equal([]int{1}, append([]int(nil), steps...))
	mu.Unlock()

	// The queued save is issued as soon as the in-flight one resolves
	close(release)
	<-flushed

	mu.Lock()
	s.Equal([]int{1, 2}, append([]int(nil), steps...))
	mu.Unlock()

	// The stopped timers must not produce a third save
	s.clock.Advance(2 * time.Second)
	mu.Lock()
	defer mu.Unlock()
	s.Len(steps, 2)
}

func (s *SchedulerSuite) TestTimerFiringDuringInFlightSaveDoesNotOverlap() {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var steps []int
	var active, maxActive int

	save := func(ctx context.Context, owner model.OwnerID, id model.DraftID, payload model.Payload) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		steps = append(steps, payload.Step)
		first := len(steps) == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}
	scheduler := New(save, s.clock, time.Second, testutil.NopLogger())
	defer scheduler.Close()

	scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})
	flushed := make(chan struct{})
	go func() {
		scheduler.Flush("draft-1")
		close(flushed)
	}()
	<-started

	scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 2})
	// A second run for the same id that slipped past the elapsed-window
	// in-flight check must queue rather than save concurrently
	scheduler.run("draft-1")

	close(release)
	<-flushed

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]int{1, 2}, steps)
	s.Equal(1, maxActive)
}

func (s *SchedulerSuite) TestLastSavedUpdatedOnSuccess() {
	s.Zero(s.scheduler.LastSaved())

	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})
	s.clock.Advance(time.Second)

	s.Equal(s.clock.Now(), s.scheduler.LastSaved())
}

func (s *SchedulerSuite) TestFailedSaveRecordsError() {
	saveErr := errors.New("cache write failed")
	s.mu.Lock()
	s.errs["draft-1"] = saveErr
	s.mu.Unlock()

	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})
	s.clock.Advance(time.Second)

	s.ErrorIs(s.scheduler.LastError(), saveErr)
	s.Zero(s.scheduler.LastSaved())
}

func (s *SchedulerSuite) TestErrorClearedByNextSuccess() {
	s.mu.Lock()
	s.errs["draft-1"] = errors.New("cache write failed")
	s.mu.Unlock()

	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})
	s.clock.Advance(time.Second)
	s.Require().Error(s.scheduler.LastError())

	s.mu.Lock()
	delete(s.errs, "draft-1")
	s.mu.Unlock()

	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 2})
	s.clock.Advance(time.Second)

	s.NoError(s.scheduler.LastError())
}

func (s *SchedulerSuite) TestCloseDropsPendingChanges() {
	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})
	s.scheduler.Close()

	s.clock.Advance(2 * time.Second)

	s.Empty(s.savedPayloads())
}

func (s *SchedulerSuite) TestNotifyAfterCloseIsIgnored() {
	s.scheduler.Close()
	s.scheduler.NotifyChange("owner-1", "draft-1", model.Payload{Step: 1})

	s.clock.Advance(2 * time.Second)

	s.Empty(s.savedPayloads())
}
