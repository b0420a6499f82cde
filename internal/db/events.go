package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marcus/calsync/internal/models"
)

const eventColumns = `id, calendar_id, remote_id, start_time, end_time, all_day,
	sync_time, local_update_time, remote_update_time, sync_status,
	feed_url, original_feed_url, title, description, location, color, recurrence`

// SaveEvent inserts or updates the event, writing back the identifier on
// insert.
func (db *DB) SaveEvent(e *models.Event) error {
	if e.Persisted() {
		_, err := db.conn.Exec(
			`UPDATE events SET calendar_id=?, remote_id=?, start_time=?, end_time=?,
			 all_day=?, sync_time=?, local_update_time=?, remote_update_time=?,
			 sync_status=?, feed_url=?, original_feed_url=?, title=?, description=?,
			 location=?, color=?, recurrence=? WHERE id=?`,
			e.CalendarID, e.RemoteID, unixOrZero(e.Start), unixOrZero(e.End),
			boolToInt(e.AllDay), unixOrZero(e.SyncTime),
			unixOrZero(e.LocalUpdateTime), unixOrZero(e.RemoteUpdateTime),
			int(e.Status), e.FeedURL, e.OriginalFeedURL, e.Title, e.Description,
			e.Location, e.Color, e.Recurrence, e.ID,
		)
		if err != nil {
			return fmt.Errorf("update event %d: %w", e.ID, err)
		}
		return nil
	}

	res, err := db.conn.Exec(
		`INSERT INTO events (calendar_id, remote_id, start_time, end_time, all_day,
		 sync_time, local_update_time, remote_update_time, sync_status, feed_url,
		 original_feed_url, title, description, location, color, recurrence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CalendarID, e.RemoteID, unixOrZero(e.Start), unixOrZero(e.End),
		boolToInt(e.AllDay), unixOrZero(e.SyncTime),
		unixOrZero(e.LocalUpdateTime), unixOrZero(e.RemoteUpdateTime),
		int(e.Status), e.FeedURL, e.OriginalFeedURL, e.Title, e.Description,
		e.Location, e.Color, e.Recurrence,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("event insert id: %w", err)
	}
	return nil
}

// EventByID returns the event with the given identifier, or nil.
func (db *DB) EventByID(id int64) (*models.Event, error) {
	return scanEventRow(db.conn.QueryRow(
		`SELECT `+eventColumns+` FROM events WHERE id=?`, id))
}

// EventByRemoteID returns the event with the given remote event id within one
// calendar, or nil.
func (db *DB) EventByRemoteID(calendarID int64, remoteID string) (*models.Event, error) {
	if remoteID == "" {
		return nil, nil
	}
	return scanEventRow(db.conn.QueryRow(
		`SELECT `+eventColumns+` FROM events WHERE calendar_id=? AND remote_id=?`,
		calendarID, remoteID))
}

// EventsInRange returns non-hidden events overlapping [start, end), ordered
// by start time.
func (db *DB) EventsInRange(start, end time.Time) ([]*models.Event, error) {
	return db.queryEvents(
		`SELECT `+eventColumns+` FROM events
		 WHERE end_time > ? AND start_time < ? AND sync_status != ?
		 ORDER BY start_time`,
		start.Unix(), end.Unix(), int(models.StatusHidden))
}

// EventsForCalendar returns all events of one calendar.
func (db *DB) EventsForCalendar(calendarID int64) ([]*models.Event, error) {
	return db.queryEvents(
		`SELECT `+eventColumns+` FROM events WHERE calendar_id=? ORDER BY start_time`,
		calendarID)
}

// LocallyModifiedEvents returns events carrying a pending outbound change:
// status neither Synchronized nor Hidden, in insertion order.
func (db *DB) LocallyModifiedEvents() ([]*models.Event, error) {
	return db.queryEvents(
		`SELECT `+eventColumns+` FROM events
		 WHERE sync_status NOT IN (?, ?) ORDER BY id`,
		int(models.StatusSynchronized), int(models.StatusHidden))
}

// HasLocallyModifiedEvents reports whether any event has a pending change.
func (db *DB) HasLocallyModifiedEvents() (bool, error) {
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM events WHERE sync_status NOT IN (?, ?)`,
		int(models.StatusSynchronized), int(models.StatusHidden)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count pending events: %w", err)
	}
	return n > 0, nil
}

// SearchEvents returns non-hidden events whose title or location matches the
// given term.
func (db *DB) SearchEvents(term string) ([]*models.Event, error) {
	like := "%" + term + "%"
	return db.queryEvents(
		`SELECT `+eventColumns+` FROM events
		 WHERE (title LIKE ? OR location LIKE ?) AND sync_status != ?
		 ORDER BY start_time`,
		like, like, int(models.StatusHidden))
}

// SetEventStatus persists just the sync status.
func (db *DB) SetEventStatus(e *models.Event, status models.SyncStatus) error {
	if _, err := db.conn.Exec(
		`UPDATE events SET sync_status=? WHERE id=?`, int(status), e.ID); err != nil {
		return fmt.Errorf("set event %d status: %w", e.ID, err)
	}
	e.Status = status
	return nil
}

// TouchEvent updates the event's sync time.
func (db *DB) TouchEvent(e *models.Event, syncTime time.Time) error {
	if _, err := db.conn.Exec(
		`UPDATE events SET sync_time=? WHERE id=?`, unixOrZero(syncTime), e.ID); err != nil {
		return fmt.Errorf("touch event %d: %w", e.ID, err)
	}
	e.SyncTime = syncTime
	return nil
}

// RemoveEvent deletes the event row.
func (db *DB) RemoveEvent(e *models.Event) error {
	if !e.Persisted() {
		return nil
	}
	if _, err := db.conn.Exec(`DELETE FROM events WHERE id=?`, e.ID); err != nil {
		return fmt.Errorf("remove event %d: %w", e.ID, err)
	}
	return nil
}

// RemoveEventsOlderThan evicts stale rows after a fully successful pull of a
// calendar's window: Synchronized events of that calendar whose sync time
// predates cutoff and whose start time falls inside [start, end). Events with
// a pending local mutation are never evicted.
func (db *DB) RemoveEventsOlderThan(cutoff time.Time, start, end time.Time, calendarID int64) (int64, error) {
	res, err := db.conn.Exec(
		`DELETE FROM events
		 WHERE calendar_id=? AND sync_status=? AND sync_time < ?
		   AND start_time >= ? AND start_time < ?`,
		calendarID, int(models.StatusSynchronized), unixOrZero(cutoff),
		start.Unix(), end.Unix())
	if err != nil {
		return 0, fmt.Errorf("remove stale events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale events rows affected: %w", err)
	}
	return n, nil
}

func (db *DB) queryEvents(query string, args ...any) ([]*models.Event, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(s scanner) (*models.Event, error) {
	var e models.Event
	var allDay, status int
	var start, end, syncTime, localUpdate, remoteUpdate int64
	err := s.Scan(&e.ID, &e.CalendarID, &e.RemoteID, &start, &end, &allDay,
		&syncTime, &localUpdate, &remoteUpdate, &status, &e.FeedURL,
		&e.OriginalFeedURL, &e.Title, &e.Description, &e.Location, &e.Color,
		&e.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.Start = timeFromUnix(start)
	e.End = timeFromUnix(end)
	e.AllDay = allDay != 0
	e.SyncTime = timeFromUnix(syncTime)
	e.LocalUpdateTime = timeFromUnix(localUpdate)
	e.RemoteUpdateTime = timeFromUnix(remoteUpdate)
	e.Status = models.SyncStatus(status)
	return &e, nil
}

func scanEventRow(row *sql.Row) (*models.Event, error) {
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}
