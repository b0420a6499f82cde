package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/marcus/calsync/internal/models"
)

// SaveAccount inserts the account if it has no identifier yet, otherwise
// updates the existing row. On insert the assigned identifier is written back.
func (db *DB) SaveAccount(a *models.Account) error {
	if a.Persisted() {
		_, err := db.conn.Exec(
			`UPDATE accounts SET username=?, credential_key=? WHERE id=?`,
			a.Username, a.CredentialKey, a.ID,
		)
		if err != nil {
			return fmt.Errorf("update account %d: %w", a.ID, err)
		}
		return nil
	}

	res, err := db.conn.Exec(
		`INSERT INTO accounts (username, credential_key) VALUES (?, ?)`,
		a.Username, a.CredentialKey,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account insert id: %w", err)
	}
	return nil
}

// AccountByID returns the account with the given identifier, or nil.
func (db *DB) AccountByID(id int64) (*models.Account, error) {
	return db.scanAccount(db.conn.QueryRow(
		`SELECT id, username, credential_key FROM accounts WHERE id=?`, id))
}

// AccountByUsername returns the account with the given username, or nil.
func (db *DB) AccountByUsername(username string) (*models.Account, error) {
	return db.scanAccount(db.conn.QueryRow(
		`SELECT id, username, credential_key FROM accounts WHERE username=?`, username))
}

// AccountForCalendar resolves the account owning the given calendar, or nil.
func (db *DB) AccountForCalendar(c *models.Calendar) (*models.Account, error) {
	if c == nil {
		return nil, nil
	}
	return db.AccountByID(c.AccountID)
}

// Accounts returns all accounts ordered by username.
func (db *DB) Accounts() ([]*models.Account, error) {
	rows, err := db.conn.Query(
		`SELECT id, username, credential_key FROM accounts ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.CredentialKey); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// RemoveAccount deletes the account and, via cascade, its calendars and their
// events.
func (db *DB) RemoveAccount(a *models.Account) error {
	if !a.Persisted() {
		return nil
	}
	if _, err := db.conn.Exec(`DELETE FROM accounts WHERE id=?`, a.ID); err != nil {
		return fmt.Errorf("remove account %d: %w", a.ID, err)
	}
	return nil
}

func (db *DB) scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Username, &a.CredentialKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}
