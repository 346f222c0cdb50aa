package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionIDBytes = 16

// SessionManager issues short-lived, single-use game sessions and is the
// sole authority on elapsed play duration. The client only ever holds the
// signed token; every timing field stays server-side.
type SessionManager struct {
	db     *DB
	ttl    time.Duration
	secret []byte

	now func() time.Time // injectable clock for tests
}

// NewSessionManager creates a manager with the signing secret loaded from
// (or persisted to) the settings table.
func NewSessionManager(db *DB, ttl time.Duration) *SessionManager {
	return &SessionManager{
		db:     db,
		ttl:    ttl,
		secret: loadOrCreateSecret(db),
		now:    time.Now,
	}
}

// loadOrCreateSecret loads the token signing secret from the database, or
// generates and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("session_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate session secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("session_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist session secret: %v", err)
		}
	}
	return secret
}

// StartGame creates a session record with server-held timing and returns
// the opaque token the client will echo back at submission time.
func (sm *SessionManager) StartGame() (string, error) {
	id := GenerateID(sessionIDBytes)
	now := sm.now()

	if err := sm.db.CreateSession(id, now, sm.ttl); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	claims := jwt.MapClaims{
		"sid": id,
		"exp": now.Add(sm.ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sm.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// parseToken verifies the token signature and extracts the session id.
// A bad signature is indistinguishable from a made-up session, so it maps
// to SessionNotFound; an expired signature short-circuits to
// SessionExpired without touching the database.
func (sm *SessionManager) parseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return sm.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrSessionExpired
		}
		return "", ErrSessionNotFound
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrSessionNotFound
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", ErrSessionNotFound
	}
	return sid, nil
}

// ValidateAndConsume burns a session and returns the server-computed play
// duration in ms. The flip of the used flag is a conditional UPDATE, so
// concurrent submissions for one session yield exactly one success; the
// losers land here in the diagnosis path and see AlreadyUsed.
func (sm *SessionManager) ValidateAndConsume(tokenStr string) (durationMs int64, sessionID string, err error) {
	sid, err := sm.parseToken(tokenStr)
	if err != nil {
		return 0, "", err
	}

	now := sm.now()
	duration, consumed, err := sm.db.ConsumeSession(sid, now)
	if err != nil {
		return 0, "", fmt.Errorf("consume session: %w", err)
	}
	if consumed {
		return duration, sid, nil
	}

	// The CAS did not fire — figure out why
	row, err := sm.db.GetSession(sid)
	if err != nil {
		return 0, "", fmt.Errorf("load session: %w", err)
	}
	switch {
	case row == nil:
		return 0, "", ErrSessionNotFound
	case row.Used:
		return 0, "", ErrSessionAlreadyUsed
	default:
		return 0, "", ErrSessionExpired
	}
}

// PruneLoop periodically deletes expired sessions. Runs until stop closes.
func (sm *SessionManager) PruneLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n, err := sm.db.PruneSessions(sm.now()); err != nil {
				log.Printf("session prune failed: %v", err)
			} else if n > 0 {
				log.Printf("pruned %d expired sessions", n)
			}
		case <-stop:
			return
		}
	}
}
