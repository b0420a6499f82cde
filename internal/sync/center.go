package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/calsync/internal/models"
)

// State is the process-wide synchronization state.
type State int

const (
	// StateStarted: idle and free to synchronize.
	StateStarted State = iota
	// StateSyncRunning: a session is in flight.
	StateSyncRunning
	// StateLastSyncFailed: the previous session reported failures.
	StateLastSyncFailed
	// StateStopped: synchronization is disabled.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateSyncRunning:
		return "running"
	case StateLastSyncFailed:
		return "last sync failed"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// jobConcurrency bounds how many jobs a session runs at once. Jobs touch
// distinct events, so correctness does not depend on the bound.
const jobConcurrency = 4

// Center gates synchronization runs: at most one session is active at a time,
// and runs are rejected (not queued) while one is in flight or while the
// center is stopped. It also records local edit intent on events without ever
// starting a run itself.
type Center struct {
	store    Store
	provider ServiceProvider
	now      func() time.Time

	mu      sync.Mutex
	state   State
	running bool
	session *Session
	runDone chan struct{}
}

// NewCenter creates a center in the Started state.
func NewCenter(store Store, provider ServiceProvider) *Center {
	return &Center{
		store:    store,
		provider: provider,
		now:      time.Now,
		state:    StateStarted,
	}
}

// State returns the current synchronization state.
func (c *Center) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SynchronizationNeeded reports whether the store has at least one event with
// a pending change.
func (c *Center) SynchronizationNeeded() (bool, error) {
	return c.store.HasLocallyModifiedEvents()
}

// TriggerLocalToRemoteSynchronization opens a new session and drives it to
// completion without blocking the caller. The call is a no-op while a session
// is still live, while the center is stopped, or when nothing needs syncing.
// The running flag, not the state enum, gates new sessions: disabling mid-run
// rewrites the state but the session keeps draining until runSession returns.
func (c *Center) TriggerLocalToRemoteSynchronization() {
	c.mu.Lock()
	if c.running || c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	needed, err := c.SynchronizationNeeded()
	if err != nil {
		slog.Warn("check pending events", "err", err)
		return
	}
	if !needed {
		return
	}

	c.mu.Lock()
	// Re-check under the lock: a concurrent trigger may have won the race.
	if c.running || c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	session := newSession(c.store, c.provider, c.now)
	done := make(chan struct{})
	c.session = session
	c.runDone = done
	c.running = true
	c.state = StateSyncRunning
	c.mu.Unlock()

	go c.runSession(session, done)
}

// runSession drives one session: dispatch every pending job with bounded
// concurrency, wait for completion, then record the aggregate outcome.
func (c *Center) runSession(session *Session, done chan struct{}) {
	defer close(done)

	failed := false
	if err := session.start(); err != nil {
		slog.Warn("session start", "err", err)
		failed = true
	} else {
		ctx := context.Background()
		sem := make(chan struct{}, jobConcurrency)
		var wg sync.WaitGroup
		for {
			job := session.pendingJob()
			if job == nil {
				break
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(j *Job) {
				defer wg.Done()
				defer func() { <-sem }()
				j.run(ctx)
			}(job)
		}
		wg.Wait()
		failed = session.failed()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	// Only transition if nobody forced Stopped mid-run.
	if c.state == StateSyncRunning {
		if failed {
			c.state = StateLastSyncFailed
		} else {
			c.state = StateStarted
		}
	}
	slog.Debug("session finished", "failed", failed, "state", c.state.String())
}

// Wait blocks until the current run, if any, completes.
func (c *Center) Wait() {
	c.mu.Lock()
	done := c.runDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// ResetFailedSynchronization clears a failed state back to Started. It is a
// no-op in any other state.
func (c *Center) ResetFailedSynchronization() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateLastSyncFailed {
		c.state = StateStarted
	}
}

// DisableSynchronization forces the Stopped state. A session already in
// flight keeps running; its outcome is discarded.
func (c *Center) DisableSynchronization() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateStopped
}

// EnableSynchronization clears the Stopped state back to Started. It refuses
// to enable while a session is still draining; the center stays stopped so a
// second session cannot open alongside the live one.
func (c *Center) EnableSynchronization() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStopped && !c.running {
		c.state = StateStarted
	}
}

// IsSynchronizationDisabled reports whether the center is stopped.
func (c *Center) IsSynchronizationDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateStopped
}

// HasOngoingSync reports whether a session is in flight, including one still
// draining after the center was disabled mid-run.
func (c *Center) HasOngoingSync() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// FailedJobs returns the failed jobs of the last or current session.
func (c *Center) FailedJobs() []*Job {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.failedJobs()
}

// SynchronizedCalendars returns the calendar snapshot of the last or current
// session.
func (c *Center) SynchronizedCalendars() []*models.Calendar {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.synchronizedCalendars()
}

// AddEvent records a local create: the event is persisted with status
// AddedLocally. Recording intent never starts a run.
func (c *Center) AddEvent(e *models.Event) error {
	e.Status = models.StatusAddedLocally
	e.LocalUpdateTime = c.now()
	if err := c.store.SaveEvent(e); err != nil {
		return persistErr(err)
	}
	return nil
}

// ModifyEvent records a local edit. An event that was never pushed keeps its
// AddedLocally status; a create followed by edits is still one outbound
// create.
func (c *Center) ModifyEvent(e *models.Event) error {
	if e.Status != models.StatusAddedLocally {
		e.Status = models.StatusModifiedLocally
	}
	e.LocalUpdateTime = c.now()
	if err := c.store.SaveEvent(e); err != nil {
		return persistErr(err)
	}
	return nil
}

// DeleteEvent records a local delete. An event that was never pushed is
// removed outright; there is nothing remote to delete.
func (c *Center) DeleteEvent(e *models.Event) error {
	if e.Status == models.StatusAddedLocally && e.RemoteID == "" {
		if err := c.store.RemoveEvent(e); err != nil {
			return persistErr(err)
		}
		return nil
	}
	e.Status = models.StatusDeletedLocally
	e.LocalUpdateTime = c.now()
	if err := c.store.SaveEvent(e); err != nil {
		return persistErr(err)
	}
	return nil
}
