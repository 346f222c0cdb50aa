package main

import (
	"log"
	"sync"
	"time"
)

// Audit kinds distinguish why a submission was rejected
const (
	AuditSession    = "session"    // not-found / expired / replay
	AuditDuration   = "duration"   // outside the plausible play window
	AuditThroughput = "throughput" // points-per-second over the ceiling
)

// AuditEvent is one rejected submission, kept for after-the-fact analysis.
// The submitter only sees a generic rejection; the reasons live here.
type AuditEvent struct {
	Kind       string
	Reason     string
	Username   string
	Score      int
	DurationMs int64
	SessionID  string
	RemoteIP   string
	Timestamp  time.Time
}

// Audit persists rejection events with a batched background writer so the
// request path never waits on the database.
type Audit struct {
	db     *DB
	events chan AuditEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAudit creates and starts the audit background writer. A nil db
// degrades to log-only.
func NewAudit(db *DB) *Audit {
	a := &Audit{
		db:     db,
		events: make(chan AuditEvent, 256),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues a rejection event (non-blocking)
func (a *Audit) Track(kind, reason, username string, score int, durationMs int64, sessionID, remoteIP string) {
	log.Printf("rejected submission [%s]: %s (name=%q score=%d duration=%dms session=%s ip=%s)",
		kind, reason, username, score, durationMs, sessionID, remoteIP)

	select {
	case a.events <- AuditEvent{
		Kind:       kind,
		Reason:     reason,
		Username:   username,
		Score:      score,
		DurationMs: durationMs,
		SessionID:  sessionID,
		RemoteIP:   remoteIP,
		Timestamp:  time.Now().UTC(),
	}:
	default:
		// Channel full — drop the event rather than blocking a request
	}
}

// Stop flushes pending events and stops the writer
func (a *Audit) Stop() {
	close(a.stop)
	a.wg.Wait()
}

func (a *Audit) writer() {
	defer a.wg.Done()
	for {
		select {
		case e := <-a.events:
			a.persist(e)
		case <-a.stop:
			// Drain whatever is still queued
			for {
				select {
				case e := <-a.events:
					a.persist(e)
				default:
					return
				}
			}
		}
	}
}

func (a *Audit) persist(e AuditEvent) {
	if a.db == nil {
		return
	}
	if err := a.db.InsertAuditEvent(e); err != nil {
		log.Printf("audit write failed: %v", err)
	}
}
