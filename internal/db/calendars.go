package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marcus/calsync/internal/models"
)

const calendarColumns = `id, account_id, remote_id, title, enabled, can_modify,
	color, feed_url, time_zone, sync_time`

// SaveCalendar inserts or updates the calendar, writing back the identifier
// on insert.
func (db *DB) SaveCalendar(c *models.Calendar) error {
	if c.Persisted() {
		_, err := db.conn.Exec(
			`UPDATE calendars SET account_id=?, remote_id=?, title=?, enabled=?,
			 can_modify=?, color=?, feed_url=?, time_zone=?, sync_time=?
			 WHERE id=?`,
			c.AccountID, c.RemoteID, c.Title, boolToInt(c.Enabled),
			boolToInt(c.CanModify), c.Color, c.FeedURL, c.TimeZone,
			unixOrZero(c.SyncTime), c.ID,
		)
		if err != nil {
			return fmt.Errorf("update calendar %d: %w", c.ID, err)
		}
		return nil
	}

	res, err := db.conn.Exec(
		`INSERT INTO calendars (account_id, remote_id, title, enabled, can_modify,
		 color, feed_url, time_zone, sync_time) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.AccountID, c.RemoteID, c.Title, boolToInt(c.Enabled),
		boolToInt(c.CanModify), c.Color, c.FeedURL, c.TimeZone,
		unixOrZero(c.SyncTime),
	)
	if err != nil {
		return fmt.Errorf("insert calendar: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("calendar insert id: %w", err)
	}
	return nil
}

// CalendarByID returns the calendar with the given identifier, or nil.
func (db *DB) CalendarByID(id int64) (*models.Calendar, error) {
	return scanCalendarRow(db.conn.QueryRow(
		`SELECT `+calendarColumns+` FROM calendars WHERE id=?`, id))
}

// CalendarByRemoteID returns the account's calendar with the given remote
// calendar id, or nil. The same remote id can exist under several accounts,
// so lookups are always account-scoped.
func (db *DB) CalendarByRemoteID(accountID int64, remoteID string) (*models.Calendar, error) {
	return scanCalendarRow(db.conn.QueryRow(
		`SELECT `+calendarColumns+` FROM calendars WHERE account_id=? AND remote_id=?`,
		accountID, remoteID))
}

// CalendarsByRemoteID returns every calendar carrying the given remote id,
// across accounts. Callers that take a bare remote id use it to disambiguate.
func (db *DB) CalendarsByRemoteID(remoteID string) ([]*models.Calendar, error) {
	return db.queryCalendars(
		`SELECT `+calendarColumns+` FROM calendars WHERE remote_id=? ORDER BY account_id`,
		remoteID)
}

// Calendars returns all calendars ordered by title.
func (db *DB) Calendars() ([]*models.Calendar, error) {
	return db.queryCalendars(`SELECT ` + calendarColumns + ` FROM calendars ORDER BY title`)
}

// EnabledCalendars returns calendars with the enabled flag set.
func (db *DB) EnabledCalendars() ([]*models.Calendar, error) {
	return db.queryCalendars(
		`SELECT ` + calendarColumns + ` FROM calendars WHERE enabled=1 ORDER BY title`)
}

// ModifiableCalendars returns enabled calendars that accept pushes.
func (db *DB) ModifiableCalendars() ([]*models.Calendar, error) {
	return db.queryCalendars(
		`SELECT ` + calendarColumns + ` FROM calendars
		 WHERE enabled=1 AND can_modify=1 ORDER BY title`)
}

// CalendarsForAccount returns the calendars owned by the given account.
func (db *DB) CalendarsForAccount(a *models.Account) ([]*models.Calendar, error) {
	return db.queryCalendars(
		`SELECT `+calendarColumns+` FROM calendars WHERE account_id=? ORDER BY title`,
		a.ID)
}

// SetCalendarEnabled persists just the enabled flag.
func (db *DB) SetCalendarEnabled(c *models.Calendar, enabled bool) error {
	if _, err := db.conn.Exec(
		`UPDATE calendars SET enabled=? WHERE id=?`, boolToInt(enabled), c.ID); err != nil {
		return fmt.Errorf("set calendar %d enabled: %w", c.ID, err)
	}
	c.Enabled = enabled
	return nil
}

// TouchCalendar updates the calendar's sync time.
func (db *DB) TouchCalendar(c *models.Calendar, syncTime time.Time) error {
	if _, err := db.conn.Exec(
		`UPDATE calendars SET sync_time=? WHERE id=?`, unixOrZero(syncTime), c.ID); err != nil {
		return fmt.Errorf("touch calendar %d: %w", c.ID, err)
	}
	c.SyncTime = syncTime
	return nil
}

// RemoveCalendar deletes the calendar and, via cascade, its events.
func (db *DB) RemoveCalendar(c *models.Calendar) error {
	if !c.Persisted() {
		return nil
	}
	if _, err := db.conn.Exec(`DELETE FROM calendars WHERE id=?`, c.ID); err != nil {
		return fmt.Errorf("remove calendar %d: %w", c.ID, err)
	}
	return nil
}

// RemoveCalendarsOlderThan deletes calendars of the given account whose sync
// time predates cutoff. Used after a calendar-list refresh to drop calendars
// no longer present on the remote side.
func (db *DB) RemoveCalendarsOlderThan(a *models.Account, cutoff time.Time) error {
	_, err := db.conn.Exec(
		`DELETE FROM calendars WHERE account_id=? AND sync_time < ?`,
		a.ID, unixOrZero(cutoff))
	if err != nil {
		return fmt.Errorf("remove stale calendars: %w", err)
	}
	return nil
}

func (db *DB) queryCalendars(query string, args ...any) ([]*models.Calendar, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendars: %w", err)
	}
	defer rows.Close()

	var calendars []*models.Calendar
	for rows.Next() {
		c, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, c)
	}
	return calendars, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCalendar(s scanner) (*models.Calendar, error) {
	var c models.Calendar
	var enabled, canModify int
	var syncTime int64
	err := s.Scan(&c.ID, &c.AccountID, &c.RemoteID, &c.Title, &enabled,
		&canModify, &c.Color, &c.FeedURL, &c.TimeZone, &syncTime)
	if err != nil {
		return nil, fmt.Errorf("scan calendar: %w", err)
	}
	c.Enabled = enabled != 0
	c.CanModify = canModify != 0
	c.SyncTime = timeFromUnix(syncTime)
	return &c, nil
}

func scanCalendarRow(row *sql.Row) (*models.Calendar, error) {
	c, err := scanCalendar(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}
