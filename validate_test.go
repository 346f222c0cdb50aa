package main

import (
	"errors"
	"math"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		SessionTTL:      15 * time.Minute,
		MinGameDuration: time.Second,
		MaxGameDuration: 10 * time.Minute,
		MaxPointsPerSec: 15,
		MaxScore:        2000,
		MinPlausible:    10,
	}
}

// testValidator returns a validator over a fresh db plus the session
// manager so tests can steer the clock.
func testValidator(t *testing.T) (*ScoreValidator, *SessionManager) {
	t.Helper()
	sm := testSessions(t, 15*time.Minute)
	audit := NewAudit(nil)
	t.Cleanup(audit.Stop)
	v := NewScoreValidator(testConfig(), sm, NewMemoryLeaderboard(), audit)
	return v, sm
}

// playedToken starts a session and advances the clock so consumption
// yields the given duration.
func playedToken(t *testing.T, sm *SessionManager, duration time.Duration) string {
	t.Helper()
	base := time.Now()
	sm.now = func() time.Time { return base }
	token, err := sm.StartGame()
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	sm.now = func() time.Time { return base.Add(duration) }
	return token
}

func TestCleanUsername(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Alice", "Alice", true},
		{"Alice 2", "Alice 2", true},
		{"  Bob  ", "Bob", true},
		{"Al_ice", "", false},
		{"abcdefghijklmnop", "", false}, // 16 chars
		{"abcdefghijklmno", "abcdefghijklmno", true},
		{"", "", false},
		{"   ", "", false},
		{"héro", "", false},
		{"name<script>", "", false},
	}
	for _, c := range cases {
		got, err := CleanUsername(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("CleanUsername(%q) = %q, %v; want %q", c.in, got, err, c.want)
		}
		if !c.ok && err == nil {
			t.Errorf("CleanUsername(%q) should fail", c.in)
		}
	}
}

func TestSubmitAcceptsPlausibleScore(t *testing.T) {
	v, sm := testValidator(t)
	token := playedToken(t, sm, 10*time.Second)

	// 100 points over 10s = 10 pts/s, under the ceiling
	rec, err := v.Submit(token, "Alice", 100, "1.2.3.4")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Score != 100 || rec.DurationMs != 10000 {
		t.Errorf("record = %+v", rec)
	}
	if rec.ID == "" {
		t.Error("record should get an id")
	}

	top, _ := v.store.TopScores(10)
	if len(top) != 1 || top[0].Username != "Alice" {
		t.Errorf("leaderboard = %+v", top)
	}
}

func TestSubmitRejectsImplausibleThroughput(t *testing.T) {
	v, sm := testValidator(t)
	token := playedToken(t, sm, 2*time.Second)

	// 500 points in 2s = 250 pts/s
	_, err := v.Submit(token, "Cheater", 500, "1.2.3.4")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != KindPermissionDenied {
		t.Fatalf("err = %v, want permission-denied", err)
	}

	top, _ := v.store.TopScores(10)
	if len(top) != 0 {
		t.Error("rejected score must not reach the leaderboard")
	}
}

func TestSubmitLowScoreSkipsThroughputCheck(t *testing.T) {
	v, sm := testValidator(t)
	token := playedToken(t, sm, 2*time.Second)

	// 4 pts in 2s is over no ceiling that matters: tiny scores are
	// exempt from the plausibility check
	if _, err := v.Submit(token, "Newbie", 4, "1.2.3.4"); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestSubmitRejectsBadDuration(t *testing.T) {
	v, sm := testValidator(t)

	tooFast := playedToken(t, sm, 200*time.Millisecond)
	if _, err := v.Submit(tooFast, "Alice", 1, "ip"); err == nil {
		t.Error("sub-second run should be rejected")
	}

	// 11 minutes is inside the 15-minute TTL but over the max play window
	tooLong := playedToken(t, sm, 11*time.Minute)
	if _, err := v.Submit(tooLong, "Alice", 1, "ip"); err == nil {
		t.Error("run longer than the max window should be rejected")
	}
}

func TestSubmitValidatesShapeBeforeBurningSession(t *testing.T) {
	v, sm := testValidator(t)
	token := playedToken(t, sm, 10*time.Second)

	if _, err := v.Submit(token, "Al_ice", 50, "ip"); err == nil {
		t.Fatal("bad username should be rejected")
	}
	if _, err := v.Submit(token, "Alice", math.NaN(), "ip"); err == nil {
		t.Fatal("NaN score should be rejected")
	}
	if _, err := v.Submit(token, "Alice", -1, "ip"); err == nil {
		t.Fatal("negative score should be rejected")
	}
	if _, err := v.Submit(token, "Alice", 2001, "ip"); err == nil {
		t.Fatal("score over the cap should be rejected")
	}

	// None of those consumed the session: a clean submit still works
	if _, err := v.Submit(token, "Alice", 100, "ip"); err != nil {
		t.Fatalf("session was burned by a shape rejection: %v", err)
	}
}

func TestSubmitFlooredScore(t *testing.T) {
	v, sm := testValidator(t)
	token := playedToken(t, sm, 20*time.Second)

	rec, err := v.Submit(token, "Alice", 123.9, "ip")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Score != 123 {
		t.Errorf("score = %d, want floored 123", rec.Score)
	}
}

func TestSubmitSessionErrors(t *testing.T) {
	v, sm := testValidator(t)

	if _, err := v.Submit("garbage", "Alice", 10, "ip"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("garbage token err = %v", err)
	}

	token := playedToken(t, sm, 10*time.Second)
	if _, err := v.Submit(token, "Alice", 10, "ip"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := v.Submit(token, "Alice", 10, "ip"); !errors.Is(err, ErrSessionAlreadyUsed) {
		t.Errorf("replayed token err = %v", err)
	}
}
