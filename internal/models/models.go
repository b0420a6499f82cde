package models

import (
	"time"
)

// SyncStatus encodes the pending outbound intent for an event, or the absence
// of one. Values match the database encoding; order is by intent, not
// magnitude.
type SyncStatus int

const (
	// StatusHidden suppresses an event from both sync and display.
	StatusHidden SyncStatus = -2
	// StatusDeletedLocally marks a pending outbound delete.
	StatusDeletedLocally SyncStatus = -1
	// StatusSynchronized means no pending local change.
	StatusSynchronized SyncStatus = 0
	// StatusAddedLocally marks a pending outbound create.
	StatusAddedLocally SyncStatus = 1
	// StatusModifiedLocally marks a pending outbound update.
	StatusModifiedLocally SyncStatus = 2
)

// Pending reports whether the status carries an outbound change that a sync
// run must push. Hidden events are excluded from sync entirely.
func (s SyncStatus) Pending() bool {
	switch s {
	case StatusAddedLocally, StatusModifiedLocally, StatusDeletedLocally:
		return true
	}
	return false
}

// Valid reports whether s is one of the defined status values.
func (s SyncStatus) Valid() bool {
	return s >= StatusHidden && s <= StatusModifiedLocally
}

func (s SyncStatus) String() string {
	switch s {
	case StatusHidden:
		return "hidden"
	case StatusDeletedLocally:
		return "deleted_locally"
	case StatusSynchronized:
		return "synchronized"
	case StatusAddedLocally:
		return "added_locally"
	case StatusModifiedLocally:
		return "modified_locally"
	}
	return "unknown"
}

// Account is a remote calendar account. Identifier 0 means not yet persisted.
// The credential itself lives in the secrets vault, keyed by CredentialKey.
type Account struct {
	ID            int64
	Username      string
	CredentialKey string
}

// Persisted reports whether the account has a database row.
func (a *Account) Persisted() bool { return a.ID > 0 }

// Calendar is one remote calendar owned by an account.
type Calendar struct {
	ID        int64
	AccountID int64
	RemoteID  string
	Title     string
	Enabled   bool
	// CanModify is false for read-only remote calendars; events on such
	// calendars are never pushed.
	CanModify bool
	Color     string
	FeedURL   string
	TimeZone  string
	SyncTime  time.Time
}

// Persisted reports whether the calendar has a database row.
func (c *Calendar) Persisted() bool { return c.ID > 0 }

// Location resolves the calendar's time zone, falling back to local time.
func (c *Calendar) Location() *time.Location {
	if c.TimeZone != "" {
		if loc, err := time.LoadLocation(c.TimeZone); err == nil {
			return loc
		}
	}
	return time.Local
}

// Event is a single calendar event row. RemoteID is empty until the event is
// first pushed successfully.
type Event struct {
	ID         int64
	CalendarID int64
	RemoteID   string

	Start  time.Time
	End    time.Time
	AllDay bool

	// SyncTime is the last time this row was written by a pull or push.
	SyncTime time.Time
	// LocalUpdateTime is the last local edit time.
	LocalUpdateTime time.Time
	// RemoteUpdateTime is the remote service's updated timestamp as of the
	// last pull or push.
	RemoteUpdateTime time.Time

	Status SyncStatus

	FeedURL string
	// OriginalFeedURL differs from FeedURL for expanded recurrence
	// instances; it identifies the canonical entry.
	OriginalFeedURL string

	Title       string
	Description string
	Location    string
	Color       string
	Recurrence  string
}

// Persisted reports whether the event has a database row.
func (e *Event) Persisted() bool { return e.ID > 0 }

// IsOriginal reports whether the event is a canonical entry rather than an
// expanded recurrence instance.
func (e *Event) IsOriginal() bool {
	return e.OriginalFeedURL == "" || e.OriginalFeedURL == e.FeedURL
}
