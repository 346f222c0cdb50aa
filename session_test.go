package main

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSessions(t *testing.T, ttl time.Duration) *SessionManager {
	t.Helper()
	return NewSessionManager(testDB(t), ttl)
}

func TestStartGameIssuesDistinctSessions(t *testing.T) {
	sm := testSessions(t, 15*time.Minute)

	t1, err := sm.StartGame()
	if err != nil {
		t.Fatalf("start 1: %v", err)
	}
	t2, err := sm.StartGame()
	if err != nil {
		t.Fatalf("start 2: %v", err)
	}
	if t1 == t2 {
		t.Fatal("two starts returned the same token")
	}

	// Each is independently single-use
	if _, _, err := sm.ValidateAndConsume(t1); err != nil {
		t.Fatalf("consume 1: %v", err)
	}
	if _, _, err := sm.ValidateAndConsume(t2); err != nil {
		t.Fatalf("consume 2 after consuming 1: %v", err)
	}
}

func TestConsumeComputesServerDuration(t *testing.T) {
	sm := testSessions(t, 15*time.Minute)

	base := time.Now()
	sm.now = func() time.Time { return base }
	token, err := sm.StartGame()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	sm.now = func() time.Time { return base.Add(42 * time.Second) }
	duration, sid, err := sm.ValidateAndConsume(token)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if duration != 42000 {
		t.Errorf("duration = %d, want 42000", duration)
	}
	if sid == "" {
		t.Error("consume should return the session id")
	}
}

func TestConsumeTwiceFailsAlreadyUsed(t *testing.T) {
	sm := testSessions(t, 15*time.Minute)
	token, _ := sm.StartGame()

	if _, _, err := sm.ValidateAndConsume(token); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	_, _, err := sm.ValidateAndConsume(token)
	if !errors.Is(err, ErrSessionAlreadyUsed) {
		t.Fatalf("second consume err = %v, want ErrSessionAlreadyUsed", err)
	}
}

func TestConsumeExpiredSession(t *testing.T) {
	sm := testSessions(t, 15*time.Minute)

	base := time.Now()
	sm.now = func() time.Time { return base }
	token, _ := sm.StartGame()

	sm.now = func() time.Time { return base.Add(16 * time.Minute) }
	_, _, err := sm.ValidateAndConsume(token)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expired consume err = %v, want ErrSessionExpired", err)
	}
}

func TestConsumeForgedToken(t *testing.T) {
	sm := testSessions(t, 15*time.Minute)

	_, _, err := sm.ValidateAndConsume("not-a-token")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("garbage token err = %v, want ErrSessionNotFound", err)
	}

	// A token signed with a different secret must not pass
	other := testSessions(t, 15*time.Minute)
	foreign, _ := other.StartGame()
	_, _, err = sm.ValidateAndConsume(foreign)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign token err = %v, want ErrSessionNotFound", err)
	}
}

func TestConcurrentConsumeExactlyOneSuccess(t *testing.T) {
	sm := testSessions(t, 15*time.Minute)
	token, _ := sm.StartGame()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = sm.ValidateAndConsume(token)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrSessionAlreadyUsed):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("got %d successes, want exactly 1", successes)
	}
}

func TestPruneSessions(t *testing.T) {
	db := testDB(t)
	sm := NewSessionManager(db, time.Minute)

	base := time.Now()
	sm.now = func() time.Time { return base }
	if _, err := sm.StartGame(); err != nil {
		t.Fatalf("start: %v", err)
	}

	n, err := db.PruneSessions(base.Add(2 * time.Minute))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d sessions, want 1", n)
	}
}
