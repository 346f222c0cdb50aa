package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// SessionRow represents a game session record. All timing fields are
// server-written unix milliseconds; the client never supplies any of them.
type SessionRow struct {
	ID         string
	StartTime  int64
	CreatedAt  int64
	ExpiresAt  int64
	Used       bool
	UsedAt     sql.NullInt64
	DurationMs sql.NullInt64
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL for concurrent readers; busy timeout so parallel submissions
	// queue instead of erroring
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		start_time INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		used INTEGER NOT NULL DEFAULT 0,
		used_at INTEGER,
		duration_ms INTEGER
	);

	CREATE TABLE IF NOT EXISTS leaderboard (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		score INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		session_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		reason TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		session_id TEXT NOT NULL DEFAULT '',
		remote_ip TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaderboard_score ON leaderboard(score DESC);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON game_sessions(expires_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// GetSetting returns a settings value, or "" if absent
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetSetting stores a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// CreateSession inserts a fresh unused session
func (db *DB) CreateSession(id string, now time.Time, ttl time.Duration) error {
	nowMs := now.UnixMilli()
	_, err := db.conn.Exec(
		"INSERT INTO game_sessions (id, start_time, created_at, expires_at, used) VALUES (?, ?, ?, ?, 0)",
		id, nowMs, nowMs, now.Add(ttl).UnixMilli(),
	)
	return err
}

// GetSession returns a session row, or nil if no such session
func (db *DB) GetSession(id string) (*SessionRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, start_time, created_at, expires_at, used, used_at, duration_ms FROM game_sessions WHERE id = ?",
		id,
	)
	s := &SessionRow{}
	err := row.Scan(&s.ID, &s.StartTime, &s.CreatedAt, &s.ExpiresAt, &s.Used, &s.UsedAt, &s.DurationMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// ConsumeSession atomically flips a session to used and records the
// server-computed duration. The WHERE clause is the compare-and-set: for
// concurrent submissions against one id exactly one UPDATE matches, so
// consumed reports true for exactly one caller.
func (db *DB) ConsumeSession(id string, now time.Time) (durationMs int64, consumed bool, err error) {
	nowMs := now.UnixMilli()
	res, err := db.conn.Exec(
		`UPDATE game_sessions
		 SET used = 1, used_at = ?, duration_ms = ? - start_time
		 WHERE id = ? AND used = 0 AND expires_at >= ?`,
		nowMs, nowMs, id, nowMs,
	)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}

	var duration int64
	err = db.conn.QueryRow("SELECT duration_ms FROM game_sessions WHERE id = ?", id).Scan(&duration)
	if err != nil {
		return 0, false, err
	}
	return duration, true, nil
}

// PruneSessions deletes sessions that expired before the cutoff
func (db *DB) PruneSessions(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec("DELETE FROM game_sessions WHERE expires_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertScore appends a leaderboard record. Records are immutable once written.
func (db *DB) InsertScore(rec *ScoreRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = GenerateID(8)
	}
	_, err := db.conn.Exec(
		"INSERT INTO leaderboard (id, username, score, duration_ms, timestamp, session_id) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Username, rec.Score, rec.DurationMs, rec.Timestamp, rec.SessionID,
	)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// TopScores returns the best n records, highest score first. Ties rank by
// insertion order (rowid), so the earlier submission wins.
func (db *DB) TopScores(n int) ([]ScoreRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, username, score, duration_ms, timestamp, session_id
		 FROM leaderboard ORDER BY score DESC, rowid ASC LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScoreRecord
	for rows.Next() {
		var r ScoreRecord
		if err := rows.Scan(&r.ID, &r.Username, &r.Score, &r.DurationMs, &r.Timestamp, &r.SessionID); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// DeleteScore removes a leaderboard record (moderation only)
func (db *DB) DeleteScore(id string) (bool, error) {
	res, err := db.conn.Exec("DELETE FROM leaderboard WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// InsertAuditEvent persists one audit log entry
func (db *DB) InsertAuditEvent(e AuditEvent) error {
	_, err := db.conn.Exec(
		`INSERT INTO audit_events (kind, reason, username, score, duration_ms, session_id, remote_ip, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Reason, e.Username, e.Score, e.DurationMs, e.SessionID, e.RemoteIP, e.Timestamp.UnixMilli(),
	)
	return err
}
