package sync

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/calsync/internal/models"
)

// Session is one synchronization run. It snapshots the calendars and pending
// events at start, owns one job per pending event, and aggregates their
// outcomes. Sessions are transient; the Center discards them when the run
// completes.
type Session struct {
	store    Store
	provider ServiceProvider
	now      func() time.Time

	mu        sync.Mutex
	jobs      []*Job
	calendars []*models.Calendar
	finished  int
}

func newSession(store Store, provider ServiceProvider, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{store: store, provider: provider, now: now}
}

// start snapshots all enabled, modifiable calendars and all events with a
// pending change, creating exactly one job per event. Events whose calendar
// fell out of the snapshot (disabled, read-only, removed) still get a job; it
// fails with a configuration error instead of going over the network.
func (s *Session) start() error {
	calendars, err := s.store.ModifiableCalendars()
	if err != nil {
		return persistErr(fmt.Errorf("snapshot calendars: %w", err))
	}

	events, err := s.store.LocallyModifiedEvents()
	if err != nil {
		return persistErr(fmt.Errorf("snapshot events: %w", err))
	}

	byID := make(map[int64]*models.Calendar, len(calendars))
	for _, c := range calendars {
		byID[c.ID] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars = calendars

	for _, ev := range events {
		job := &Job{store: s.store, session: s, Event: ev, now: s.now}

		if cal, ok := byID[ev.CalendarID]; ok {
			job.Calendar = cal
			account, err := s.store.AccountForCalendar(cal)
			if err != nil {
				slog.Warn("resolve account", "calendar", cal.ID, "err", err)
			}
			job.Account = account
			if account != nil {
				svc, err := s.provider.ServiceFor(account)
				if err != nil {
					slog.Warn("resolve service", "account", account.Username, "err", err)
				}
				job.service = svc
			}
		}

		s.jobs = append(s.jobs, job)
	}

	slog.Debug("session started", "jobs", len(s.jobs), "calendars", len(calendars))
	return nil
}

// pendingJob returns the next not-yet-started job in creation order, marking
// it started, or nil when every job has been dispatched. This is the dispatch
// point of the driving loop.
func (s *Session) pendingJob() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if !j.started {
			j.started = true
			return j
		}
	}
	return nil
}

// jobFinished records a job's terminal state. The job's fields are set here,
// under the session lock, so failedJobs and failed observe them consistently.
func (s *Session) jobFinished(job *Job, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.err = err
	job.finished = true
	s.finished++
}

// done reports whether every job has finished.
func (s *Session) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished == len(s.jobs)
}

// failed reports whether, after every job finished, at least one carries an
// error.
func (s *Session) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished != len(s.jobs) {
		return false
	}
	for _, j := range s.jobs {
		if j.err != nil {
			return true
		}
	}
	return false
}

// failedJobs returns the jobs that finished with an error.
func (s *Session) failedJobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []*Job
	for _, j := range s.jobs {
		if j.finished && j.err != nil {
			failed = append(failed, j)
		}
	}
	return failed
}

// synchronizedCalendars returns the calendar snapshot of this run.
func (s *Session) synchronizedCalendars() []*models.Calendar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Calendar(nil), s.calendars...)
}

// cancel aborts every job's in-flight requests.
func (s *Session) cancel() {
	s.mu.Lock()
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.Unlock()
	for _, j := range jobs {
		j.cancel()
	}
}
