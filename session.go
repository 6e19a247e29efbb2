package gate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

const sqliteSessionSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

// NewSQLiteSessionManager returns a session manager persisting sessions in
// db, creating the sessions table when missing. Expired rows are purged
// every cleanup; zero disables the purge goroutine.
func NewSQLiteSessionManager(db *sql.DB, cleanup time.Duration) (*scs.SessionManager, error) {
	if _, err := db.Exec(sqliteSessionSchema); err != nil {
		return nil, fmt.Errorf("gate: create sessions table: %w", err)
	}
	sm := scs.New()
	sm.Store = sqlite3store.NewWithCleanupInterval(db, cleanup)
	sm.Lifetime = 30 * 24 * time.Hour
	sm.Cookie.Persist = true
	return sm, nil
}

// Session is the visitor's scs session as seen by one request. Values set
// on it are committed when that request's response is written.
type Session struct {
	ctx     context.Context
	manager *scs.SessionManager
}

func (s *Session) ok() bool {
	return s.manager != nil && s.ctx != nil
}

// GetString retrieves a string value from the session.
func (s *Session) GetString(key string) string {
	if !s.ok() {
		return ""
	}
	return s.manager.GetString(s.ctx, key)
}

// Set stores a value in the session.
func (s *Session) Set(key string, val any) {
	if !s.ok() {
		return
	}
	s.manager.Put(s.ctx, key, val)
}

// RenewToken regenerates the session token (use after login to prevent session fixation).
func (s *Session) RenewToken() error {
	if !s.ok() {
		return nil
	}
	return s.manager.RenewToken(s.ctx)
}
