package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/remote"
)

// Job performs exactly one outbound operation for one locally-modified event.
// The operation is selected by the event's sync status at dispatch time. On
// failure the event's fields and status are left untouched so the next run
// retries the same operation.
type Job struct {
	store   Store
	service Service

	// session is a non-owning back-reference; jobs never outlive their
	// session.
	session *Session

	Event    *models.Event
	Account  *models.Account
	Calendar *models.Calendar

	started  bool
	finished bool
	err      error
	tickets  ticketSet

	now func() time.Time
}

// Err returns the job's terminal error, if any.
func (j *Job) Err() error { return j.err }

// Finished reports whether the job has reached a terminal state.
func (j *Job) Finished() bool { return j.finished }

// cancel aborts the job's in-flight requests.
func (j *Job) cancel() { j.tickets.cancelAll() }

// run pushes the event's pending change to the remote service and applies the
// result to the local store. It always finishes the job and reports back to
// the session; the terminal fields are written there, under the session lock,
// so mid-run introspection never races the job goroutine.
func (j *Job) run(ctx context.Context) {
	var err error
	defer func() {
		j.session.jobFinished(j, err)
	}()

	if j.Calendar == nil || j.Account == nil || j.service == nil {
		err = configErr("event %d has no calendar/account context", j.Event.ID)
		return
	}
	if !j.Calendar.CanModify {
		err = configErr("calendar %q is read-only", j.Calendar.Title)
		return
	}

	switch j.Event.Status {
	case models.StatusAddedLocally:
		err = j.pushCreate(ctx)
	case models.StatusModifiedLocally:
		err = j.pushUpdate(ctx)
	case models.StatusDeletedLocally:
		err = j.pushDelete(ctx)
	default:
		err = configErr("event %d has no pending change (status %s)", j.Event.ID, j.Event.Status)
	}

	if err != nil {
		slog.Debug("sync job failed", "event", j.Event.ID, "status", j.Event.Status.String(), "err", err)
	}
}

func (j *Job) pushCreate(ctx context.Context) error {
	created, err := j.callCreate(ctx)
	if err != nil {
		return classifyRemote(err)
	}

	prior := *j.Event
	j.Event.RemoteID = created.ID
	if created.FeedURL != "" {
		j.Event.FeedURL = created.FeedURL
	}
	j.Event.RemoteUpdateTime = created.Updated
	j.Event.SyncTime = j.now()
	j.Event.Status = models.StatusSynchronized

	if err := j.store.SaveEvent(j.Event); err != nil {
		// Never claim success without a durable write.
		*j.Event = prior
		return persistErr(err)
	}
	return nil
}

func (j *Job) pushUpdate(ctx context.Context) error {
	if j.Event.RemoteID == "" {
		return configErr("event %d marked modified but never pushed", j.Event.ID)
	}

	updated, err := j.callUpdate(ctx)
	if err != nil {
		return classifyRemote(err)
	}

	prior := *j.Event
	j.Event.RemoteUpdateTime = updated.Updated
	j.Event.SyncTime = j.now()
	j.Event.Status = models.StatusSynchronized

	if err := j.store.SaveEvent(j.Event); err != nil {
		*j.Event = prior
		return persistErr(err)
	}
	return nil
}

func (j *Job) pushDelete(ctx context.Context) error {
	// An event deleted before its first successful push has nothing remote
	// to remove.
	if j.Event.RemoteID != "" {
		err := j.callDelete(ctx)
		// Already gone on the remote side counts as done.
		if err != nil && !errors.Is(err, remote.ErrNotFound) {
			return classifyRemote(err)
		}
	}

	if err := j.store.RemoveEvent(j.Event); err != nil {
		return persistErr(err)
	}
	return nil
}

func (j *Job) callCreate(ctx context.Context) (*remote.Event, error) {
	ctx, cancel := context.WithCancel(ctx)
	id := j.tickets.add(cancel)
	defer func() {
		j.tickets.remove(id)
		cancel()
	}()
	return j.service.CreateEvent(ctx, j.Calendar.RemoteID, wireEvent(j.Event))
}

func (j *Job) callUpdate(ctx context.Context) (*remote.Event, error) {
	ctx, cancel := context.WithCancel(ctx)
	id := j.tickets.add(cancel)
	defer func() {
		j.tickets.remove(id)
		cancel()
	}()
	return j.service.UpdateEvent(ctx, j.Calendar.RemoteID, j.Event.RemoteID, wireEvent(j.Event))
}

func (j *Job) callDelete(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	id := j.tickets.add(cancel)
	defer func() {
		j.tickets.remove(id)
		cancel()
	}()
	return j.service.DeleteEvent(ctx, j.Calendar.RemoteID, j.Event.RemoteID)
}

// wireEvent converts a local event to its wire representation.
func wireEvent(e *models.Event) *remote.Event {
	return &remote.Event{
		ID:          e.RemoteID,
		Summary:     e.Title,
		Description: e.Description,
		Location:    e.Location,
		ColorID:     e.Color,
		Start:       e.Start,
		End:         e.End,
		AllDay:      e.AllDay,
		Recurrence:  e.Recurrence,
	}
}
