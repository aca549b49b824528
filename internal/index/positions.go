package index

import (
	"database/sql"
	"errors"
)

// PositionStore adapts the reader_state table to the reader core's
// best-effort persistence contract: every underlying failure is swallowed,
// a failed read is "no saved position". Keys are stored verbatim; the
// reader session namespaces them before they reach the store.
type PositionStore struct {
	db *DB
}

// Positions returns the reading-position store backed by this database.
func (d *DB) Positions() *PositionStore {
	return &PositionStore{db: d}
}

func (s *PositionStore) Load(key string) (string, bool) {
	var token string
	err := s.db.sql.QueryRow(`SELECT value FROM reader_state WHERE key = ?`,
		key).Scan(&token)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.db.log.Debug("position load failed", "key", key, "error", err)
		}
		return "", false
	}
	return token, true
}

func (s *PositionStore) Save(key, token string) {
	_, err := s.db.sql.Exec(`
		INSERT INTO reader_state (key, value, updated_at)
		VALUES (?, ?, unixepoch())
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=unixepoch()`,
		key, token)
	if err != nil {
		s.db.log.Debug("position save failed", "key", key, "error", err)
	}
}
