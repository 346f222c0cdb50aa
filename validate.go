package main

import (
	"math"
	"regexp"
	"strings"
	"time"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

const maxUsernameLen = 15

// ScoreValidator gatekeeps the leaderboard. Checks run in a fixed order
// and fail fast: identity shape, score shape, then the session-derived
// duration, then throughput plausibility. Only the first two trust
// anything the client sent.
type ScoreValidator struct {
	cfg      Config
	sessions *SessionManager
	store    LeaderboardStore
	audit    *Audit

	now func() time.Time
}

// NewScoreValidator wires the validator to its session authority and store
func NewScoreValidator(cfg Config, sessions *SessionManager, store LeaderboardStore, audit *Audit) *ScoreValidator {
	return &ScoreValidator{
		cfg:      cfg,
		sessions: sessions,
		store:    store,
		audit:    audit,
		now:      time.Now,
	}
}

// CleanUsername validates and normalizes a submitted name
func CleanUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) == 0 || len(name) > maxUsernameLen {
		return "", invalidArgument("invalid name")
	}
	if !usernameRe.MatchString(name) {
		return "", invalidArgument("invalid name")
	}
	return name, nil
}

// Submit validates {gameId, username, score} and on success appends the
// record. Duration comes from consuming the session, never from the
// client. The session burns even when a later check rejects — a rejected
// run does not get a second try at submission.
func (v *ScoreValidator) Submit(gameID, username string, score float64, remoteIP string) (*ScoreRecord, error) {
	name, err := CleanUsername(username)
	if err != nil {
		return nil, err
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, invalidArgument("invalid score")
	}
	points := int(math.Floor(score))
	if points < 0 || points > v.cfg.MaxScore {
		return nil, invalidArgument("invalid score")
	}

	durationMs, sessionID, err := v.sessions.ValidateAndConsume(gameID)
	if err != nil {
		v.audit.Track(AuditSession, err.Error(), name, points, 0, "", remoteIP)
		return nil, err
	}

	minMs := v.cfg.MinGameDuration.Milliseconds()
	maxMs := v.cfg.MaxGameDuration.Milliseconds()
	if durationMs < minMs || durationMs > maxMs {
		v.audit.Track(AuditDuration, "duration out of range", name, points, durationMs, sessionID, remoteIP)
		return nil, invalidArgument("invalid duration")
	}

	pps := float64(points) / (float64(durationMs) / 1000.0)
	if points > v.cfg.MinPlausible && pps > v.cfg.MaxPointsPerSec {
		v.audit.Track(AuditThroughput, "points per second over ceiling", name, points, durationMs, sessionID, remoteIP)
		return nil, permissionDenied("suspicious score")
	}

	rec := &ScoreRecord{
		Username:   name,
		Score:      points,
		DurationMs: durationMs,
		Timestamp:  v.now().UnixMilli(),
		SessionID:  sessionID,
	}
	if _, err := v.store.InsertScore(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
