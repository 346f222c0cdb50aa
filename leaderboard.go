package main

import (
	"sort"
	"sync"
)

// ScoreRecord is one leaderboard entry. Append-only: once written it is
// never modified (moderation may delete, never edit).
type ScoreRecord struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Score      int    `json:"score"`
	DurationMs int64  `json:"duration_ms"`
	Timestamp  int64  `json:"timestamp"`
	SessionID  string `json:"gameId"`
}

// LeaderboardStore is an append-only record store queried for the top N
type LeaderboardStore interface {
	InsertScore(rec *ScoreRecord) (string, error)
	TopScores(n int) ([]ScoreRecord, error)
}

// MemoryLeaderboard is an in-memory LeaderboardStore. Used by tests and
// as the degraded mode when the database is unavailable.
type MemoryLeaderboard struct {
	mu   sync.Mutex
	recs []ScoreRecord
}

// NewMemoryLeaderboard creates an empty in-memory store
func NewMemoryLeaderboard() *MemoryLeaderboard {
	return &MemoryLeaderboard{}
}

// InsertScore appends a record
func (m *MemoryLeaderboard) InsertScore(rec *ScoreRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = GenerateID(8)
	}
	m.recs = append(m.recs, *rec)
	return rec.ID, nil
}

// TopScores returns the best n records, score descending, earlier
// insertion winning ties.
func (m *MemoryLeaderboard) TopScores(n int) ([]ScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ScoreRecord, len(m.recs))
	copy(out, m.recs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
