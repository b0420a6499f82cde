package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marcus/calsync/internal/db"
	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/remote"
)

// fakeService is an in-memory stand-in for the remote calendar service.
// Behavior is overridden per test through the function fields; the defaults
// echo requests back the way a healthy server would.
type fakeService struct {
	mu          sync.Mutex
	listCalls   int
	createCalls int
	updateCalls int
	deleteCalls int

	listFn   func(ctx context.Context, calendarID string, start, end time.Time, pageToken string) (*remote.EventPage, error)
	createFn func(ctx context.Context, calendarID string, ev *remote.Event) (*remote.Event, error)
	updateFn func(ctx context.Context, calendarID, eventID string, ev *remote.Event) (*remote.Event, error)
	deleteFn func(ctx context.Context, calendarID, eventID string) error
}

func (f *fakeService) ListEvents(ctx context.Context, calendarID string, start, end time.Time, pageToken string) (*remote.EventPage, error) {
	f.mu.Lock()
	f.listCalls++
	fn := f.listFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, calendarID, start, end, pageToken)
	}
	return &remote.EventPage{}, nil
}

func (f *fakeService) CreateEvent(ctx context.Context, calendarID string, ev *remote.Event) (*remote.Event, error) {
	f.mu.Lock()
	f.createCalls++
	fn := f.createFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, calendarID, ev)
	}
	out := *ev
	out.ID = "ev123"
	out.Updated = time.Now()
	return &out, nil
}

func (f *fakeService) UpdateEvent(ctx context.Context, calendarID, eventID string, ev *remote.Event) (*remote.Event, error) {
	f.mu.Lock()
	f.updateCalls++
	fn := f.updateFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, calendarID, eventID, ev)
	}
	out := *ev
	out.ID = eventID
	out.Updated = time.Now()
	return &out, nil
}

func (f *fakeService) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	f.deleteCalls++
	fn := f.deleteFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, calendarID, eventID)
	}
	return nil
}

func (f *fakeService) calls() (list, create, update, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.createCalls, f.updateCalls, f.deleteCalls
}

func providerFor(svc Service) ServiceProvider {
	return ServiceProviderFunc(func(*models.Account) (Service, error) {
		return svc, nil
	})
}

func newSyncStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedSource(t *testing.T, store *db.DB) (*models.Account, *models.Calendar) {
	t.Helper()
	account := &models.Account{Username: "john@example.com"}
	if err := store.SaveAccount(account); err != nil {
		t.Fatalf("save account: %v", err)
	}
	calendar := &models.Calendar{
		AccountID: account.ID,
		RemoteID:  "cal-primary",
		Title:     "Primary",
		Enabled:   true,
		CanModify: true,
	}
	if err := store.SaveCalendar(calendar); err != nil {
		t.Fatalf("save calendar: %v", err)
	}
	return account, calendar
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCenter_PushCreate(t *testing.T) {
	store := newSyncStore(t)
	_, calendar := seedSource(t, store)

	event := &models.Event{CalendarID: calendar.ID, Title: "lunch"}
	center := NewCenter(store, providerFor(&fakeService{}))
	if err := center.AddEvent(event); err != nil {
		t.Fatalf("add event: %v", err)
	}

	needed, err := center.SynchronizationNeeded()
	if err != nil || !needed {
		t.Fatalf("needed=%v err=%v, want true", needed, err)
	}

	center.TriggerLocalToRemoteSynchronization()
	center.Wait()

	if got := center.State(); got != StateStarted {
		t.Errorf("state after clean run: %s", got)
	}

	pushed, err := store.EventByID(event.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pushed.RemoteID != "ev123" {
		t.Errorf("remote id: got %q", pushed.RemoteID)
	}
	if pushed.Status != models.StatusSynchronized {
		t.Errorf("status: got %s", pushed.Status)
	}
	if pushed.SyncTime.IsZero() || pushed.RemoteUpdateTime.IsZero() {
		t.Error("sync and remote update times should be stamped")
	}

	needed, _ = center.SynchronizationNeeded()
	if needed {
		t.Error("nothing should be pending after the run")
	}
}

func TestCenter_PushUpdateAndDelete(t *testing.T) {
	store := newSyncStore(t)
	_, calendar := seedSource(t, store)

	modified := &models.Event{
		CalendarID: calendar.ID, RemoteID: "ev-upd", Title: "new title",
		Status: models.StatusModifiedLocally,
	}
	deleted := &models.Event{
		CalendarID: calendar.ID, RemoteID: "ev-del", Title: "old",
		Status: models.StatusDeletedLocally,
	}
	for _, e := range []*models.Event{modified, deleted} {
		if err := store.SaveEvent(e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	svc := &fakeService{}
	center := NewCenter(store, providerFor(svc))
	center.TriggerLocalToRemoteSynchronization()
	center.Wait()

	if got := center.State(); got != StateStarted {
		t.Fatalf("state: %s, failed jobs: %v", got, center.FailedJobs())
	}

	gotMod, _ := store.EventByID(modified.ID)
	if gotMod.Status != models.StatusSynchronized {
		t.Errorf("modified event status: got %s", gotMod.Status)
	}

	gotDel, _ := store.EventByID(deleted.ID)
	if gotDel != nil {
		t.Error("deleted event should be removed from the store")
	}

	_, _, updates, deletes := svc.calls()
	if updates != 1 || deletes != 1 {
		t.Errorf("got %d updates and %d deletes, want 1 each", updates, deletes)
	}
}

func TestCenter_DeleteToleratesRemoteGone(t *testing.T) {
	store := newSyncStore(t)
	_, calendar := seedSource(t, store)

	event := &models.Event{
		CalendarID: calendar.ID, RemoteID: "ev-gone",
		Status: models.StatusDeletedLocally,
	}
	if err := store.SaveEvent(event); err != nil {
		t.Fatalf("save: %v", err)
	}

	svc := &fakeService{
		deleteFn: func(ctx context.Context, calendarID, eventID string) error {
			return remote.ErrNotFound
		},
	}
	center := NewCenter(store, providerFor(svc))
	center.TriggerLocalToRemoteSynchronization()
	center.Wait()

	if got := center.State(); got != StateStarted {
		t.Errorf("already-gone remote delete should count as success, state: %s", got)
	}
	gone, _ := store.EventByID(event.ID)
	if gone != nil {
		t.Error("event row should be removed")
	}
}

func TestCenter_FailureLeavesEventUntouched(t *testing.T) {
	store := newSyncStore(t)
	_, calendar := seedSource(t, store)

	event := &models.Event{
		CalendarID: calendar.ID, Title: "doomed",
		Status: models.StatusAddedLocally,
	}
	if err := store.SaveEvent(event); err != nil {
		t.Fatalf("save: %v", err)
	}

	svc := &fakeService{
		createFn: func(ctx context.Context, calendarID string, ev *remote.Event) (*remote.Event, error) {
			return nil, errors.New("connection reset")
		},
	}
	center := NewCenter(store, providerFor(svc))
	center.TriggerLocalToRemoteSynchronization()
	center.Wait()

	if got := center.State(); got != StateLastSyncFailed {
		t.Fatalf("state: got %s, want last sync failed", got)
	}

	failed := center.FailedJobs()
	if len(failed) != 1 {
		t.Fatalf("got %d failed jobs, want 1", len(failed))
	}
	if !errors.Is(failed[0].Err(), ErrTransport) {
		t.Errorf("job error: got %v, want transport class", failed[0].Err())
	}

	// The pending change survives for the next run.
	kept, _ := store.EventByID(event.ID)
	if kept.Status != models.StatusAddedLocally || kept.RemoteID != "" {
		t.Errorf("failed push mutated the event: %+v", kept)
	}

	// A failed state blocks nothing once reset.
	center.ResetFailedSynchronization()
	if got := center.State(); got != StateStarted {
		t.Errorf("state after reset: %s", got)
	}
}

func TestCenter_TriggerWhileRunningIsNoOp(t *testing.T) {
	store := newSyncStore(t)
	_, calendar := seedSource(t, store)

	event := &models.Event{CalendarID: calendar.ID, Status: models.StatusAddedLocally}
	if err := store.SaveEvent(event); err != nil {
		t.Fatalf("save: %v", err)
	}

	release := make(chan struct{})
	svc := &fakeService{
		createFn: func(ctx context.Context, calendarID string, ev *remote.Event) (*remote.Event, error) {
			<-release
			out := *ev
			out.ID = "ev123"
			out.Updated = time.Now()
			return &out, nil
		},
	}
	center := NewCenter(store, providerFor(svc))
	center.TriggerLocalToRemoteSynchronization()

	waitFor(t, "session start", func() bool {
		_, creates, _, _ := svc.calls()
		return creates == 1
	})
	if !center.HasOngoingSync() {
		t.Error("a session should be in flight")
	}

	// Re-triggering mid-run must not open a second session.
	center.TriggerLocalToRemoteSynchronization()
	close(release)
	center.Wait()

	_, creates, _, _ := svc.calls()
	if creates != 1 {
		t.Errorf("got %d create calls, want 1", creates)
	}
	if got := center.State(); got != StateStarted {
		t.Errorf("state: %s", got)
	}
}

func TestCenter_DisabledBlocksRuns(t *testing.T) {
	store := newSyncStore(t)
	_, calendar := seedSource(t, store)

	event := &models.Event{CalendarID: calendar.ID, Status: models.StatusAddedLocally}
	if err := store.SaveEvent(event); err != nil {
		t.Fatalf("save: %v", err)
	}

	svc := &fakeService{}
	center := NewCenter(store, providerFor(svc))
	center.DisableSynchronization()

	if !center.IsSynchronizationDisabled() {
		t.Fatal("center should report disabled")
	}

	center.TriggerLocalToRemoteSynchronization()
	center.Wait()

	if _, creates, _, _ := svc.calls(); creates != 0 {
		t.Errorf("disabled center made %d remote calls", creates)
	}

	center.EnableSynchronization()
	if center.IsSynchronizationDisabled() {
		t.Error("center should be enabled again")
	}
	center.TriggerLocalToRemoteSynchronization()
	center.Wait()

	if _, creates, _, _ := svc.calls(); creates != 1 {
		t.Errorf("got %d create calls after enable, want 1", creates)
	}
}

func TestCenter_DisableEnableMidRunKeepsOneSession(t *testing.T) {
	store := newSyncStore(t)
	_, calendar := seedSource(t, store)

	event := &models.Event{CalendarID: calendar.ID, Status: models.StatusAddedLocally}
	if err := store.SaveEvent(event); err != nil {
		t.Fatalf("save: %v", err)
	}

	release := make(chan struct{})
	svc := &fakeService{
		createFn: func(ctx context.Context, calendarID string, ev *remote.Event) (*remote.Event, error) {
			<-release
			out := *ev
			out.ID = "ev123"
			out.Updated = time.Now()
			return &out, nil
		},
	}
	center := NewCenter(store, providerFor(svc))
	center.TriggerLocalToRemoteSynchronization()

	waitFor(t, "session start", func() bool {
		_, creates, _, _ := svc.calls()
		return creates == 1
	})

	// Mid-run introspection while the job goroutine is live.
	if failed := center.FailedJobs(); len(failed) != 0 {
		t.Fatalf("no jobs should have failed yet: %v", failed)
	}

	// Disabling mid-run rewrites the state while the session keeps draining.
	center.DisableSynchronization()
	if !center.HasOngoingSync() {
		t.Fatal("the session must still be live after disable")
	}

	// Enabling must be refused while the session drains: a trigger here would
	// otherwise open a second session pushing the same pending event.
	center.EnableSynchronization()
	if !center.IsSynchronizationDisabled() {
		t.Fatal("enable must be refused while a session is draining")
	}
	center.TriggerLocalToRemoteSynchronization()

	close(release)
	center.Wait()

	if _, creates, _, _ := svc.calls(); creates != 1 {
		t.Fatalf("got %d create calls, want exactly 1 session's worth", creates)
	}
	if got := center.State(); got != StateStopped {
		t.Errorf("state after drained disabled run: %s", got)
	}

	// Once drained, enabling works again.
	center.EnableSynchronization()
	if got := center.State(); got != StateStarted {
		t.Errorf("state after enable: %s", got)
	}
}

// flakyStore fails event writes on demand while delegating everything else.
type flakyStore struct {
	Store
	saveErr error
}

func (s *flakyStore) SaveEvent(e *models.Event) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.SaveEvent(e)
}

func TestCenter_PersistFailureKeepsPendingStatus(t *testing.T) {
	store := newSyncStore(t)
	_, calendar := seedSource(t, store)

	event := &models.Event{
		CalendarID: calendar.ID, Title: "draft",
		Status: models.StatusAddedLocally,
	}
	if err := store.SaveEvent(event); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The remote create succeeds; the write recording that success fails.
	flaky := &flakyStore{Store: store, saveErr: errors.New("disk full")}
	center := NewCenter(flaky, providerFor(&fakeService{}))
	center.TriggerLocalToRemoteSynchronization()
	center.Wait()

	if got := center.State(); got != StateLastSyncFailed {
		t.Fatalf("state: got %s", got)
	}
	failed := center.FailedJobs()
	if len(failed) != 1 || !errors.Is(failed[0].Err(), ErrPersistence) {
		t.Fatalf("failed jobs: %v", failed)
	}

	// The job rolled its in-memory event back to the pending snapshot.
	if failed[0].Event.Status != models.StatusAddedLocally || failed[0].Event.RemoteID != "" {
		t.Errorf("in-memory event not restored: %+v", failed[0].Event)
	}

	// The durable row never claimed success either.
	row, err := store.EventByID(event.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if row.Status != models.StatusAddedLocally || row.RemoteID != "" {
		t.Errorf("stored event mutated by a failed write: %+v", row)
	}
}

func TestCenter_ReadOnlyCalendarFailsWithoutNetwork(t *testing.T) {
	store := newSyncStore(t)
	account, _ := seedSource(t, store)

	readOnly := &models.Calendar{
		AccountID: account.ID, RemoteID: "cal-ro", Title: "Holidays",
		Enabled: true, CanModify: false,
	}
	if err := store.SaveCalendar(readOnly); err != nil {
		t.Fatalf("save calendar: %v", err)
	}

	event := &models.Event{CalendarID: readOnly.ID, Status: models.StatusAddedLocally}
	if err := store.SaveEvent(event); err != nil {
		t.Fatalf("save: %v", err)
	}

	svc := &fakeService{}
	center := NewCenter(store, providerFor(svc))
	center.TriggerLocalToRemoteSynchronization()
	center.Wait()

	if got := center.State(); got != StateLastSyncFailed {
		t.Fatalf("state: got %s", got)
	}
	failed := center.FailedJobs()
	if len(failed) != 1 || !errors.Is(failed[0].Err(), ErrConfiguration) {
		t.Fatalf("failed jobs: %v", failed)
	}
	if _, creates, _, _ := svc.calls(); creates != 0 {
		t.Errorf("read-only calendar still made %d remote calls", creates)
	}
}

func TestCenter_IntentRecording(t *testing.T) {
	store := newSyncStore(t)
	_, calendar := seedSource(t, store)
	center := NewCenter(store, providerFor(&fakeService{}))

	// A fresh local event is an outbound create.
	event := &models.Event{CalendarID: calendar.ID, Title: "draft"}
	if err := center.AddEvent(event); err != nil {
		t.Fatalf("add: %v", err)
	}
	if event.Status != models.StatusAddedLocally {
		t.Errorf("after add: %s", event.Status)
	}

	// Editing a never-pushed event keeps it a single outbound create.
	event.Title = "draft v2"
	if err := center.ModifyEvent(event); err != nil {
		t.Fatalf("modify: %v", err)
	}
	if event.Status != models.StatusAddedLocally {
		t.Errorf("edit of unpushed event: %s, want added locally", event.Status)
	}

	// Deleting a never-pushed event removes it outright.
	if err := center.DeleteEvent(event); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := store.EventByID(event.ID); got != nil {
		t.Error("never-pushed event should be removed, not marked deleted")
	}

	// A synchronized event goes through the full status lifecycle instead.
	pushed := &models.Event{
		CalendarID: calendar.ID, RemoteID: "ev9",
		Status: models.StatusSynchronized, Title: "meeting",
	}
	if err := store.SaveEvent(pushed); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := center.ModifyEvent(pushed); err != nil {
		t.Fatalf("modify: %v", err)
	}
	if pushed.Status != models.StatusModifiedLocally {
		t.Errorf("edit of pushed event: %s", pushed.Status)
	}
	if err := center.DeleteEvent(pushed); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := store.EventByID(pushed.ID)
	if got == nil || got.Status != models.StatusDeletedLocally {
		t.Errorf("delete of pushed event: %+v, want deleted locally row", got)
	}
}

func TestCenter_TriggerWithNothingPending(t *testing.T) {
	store := newSyncStore(t)
	seedSource(t, store)

	svc := &fakeService{}
	center := NewCenter(store, providerFor(svc))
	center.TriggerLocalToRemoteSynchronization()
	center.Wait()

	if got := center.State(); got != StateStarted {
		t.Errorf("state: %s", got)
	}
	if _, creates, updates, deletes := svc.calls(); creates+updates+deletes != 0 {
		t.Error("no remote calls expected with nothing pending")
	}
}
