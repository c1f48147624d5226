package db

import (
	"database/sql"
	"time"
)

// Credential is a persisted bearer token for one backend endpoint
type Credential struct {
	Endpoint string
	Token    string
	SavedAt  time.Time
}

// SaveCredential upserts the token for an endpoint
func (db *DB) SaveCredential(endpoint, token string) error {
	_, err := db.conn.Exec(`
		INSERT INTO credentials (endpoint, token, saved_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(endpoint) DO UPDATE SET
			token = excluded.token,
			saved_at = CURRENT_TIMESTAMP
	`, endpoint, token)
	return err
}

// LoadCredential returns the stored credential, or nil if there is none
func (db *DB) LoadCredential(endpoint string) (*Credential, error) {
	var c Credential
	err := db.conn.QueryRow(`
		SELECT endpoint, token, saved_at FROM credentials WHERE endpoint = ?
	`, endpoint).Scan(&c.Endpoint, &c.Token, &c.SavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCredential removes the token for an endpoint. Deleting a missing
// row is not an error.
func (db *DB) DeleteCredential(endpoint string) error {
	_, err := db.conn.Exec(`DELETE FROM credentials WHERE endpoint = ?`, endpoint)
	return err
}
