package main

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"
)

const (
	submitRateWindow  = 60 * time.Second
	maxSubmitsPerIP   = 10
	maxStartsPerIP    = 30
	leaderboardTopN   = 10
	qrDefaultSize     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimiter counts events per IP within a fixed window
type rateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string]*rateEntry
}

type rateEntry struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{max: max, window: window, entries: make(map[string]*rateEntry)}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	e, ok := rl.entries[ip]
	if !ok || now.After(e.resetAt) {
		rl.entries[ip] = &rateEntry{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	e.count++
	return e.count <= rl.max
}

// API wire shapes
type submitReq struct {
	GameID   string  `json:"gameId"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	// Client-claimed elapsed time. Never trusted; kept only to measure
	// clock drift between client and server.
	ClaimedMs int64 `json:"elapsed_ms,omitempty"`
}

type okResp struct {
	OK     bool   `json:"ok"`
	GameID string `json:"gameId,omitempty"`
	ID     string `json:"id,omitempty"`
}

type failResp struct {
	OK      bool   `json:"ok"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, err error) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		status := http.StatusBadRequest
		if reqErr.Kind == KindPermissionDenied {
			status = http.StatusForbidden
		}
		writeJSON(w, status, failResp{Kind: reqErr.Kind, Message: reqErr.Msg})
		return
	}
	log.Printf("internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, failResp{Kind: "internal", Message: "internal error"})
}

// Server bundles the HTTP-facing dependencies
type Server struct {
	cfg      Config
	hub      *Hub
	sessions *SessionManager
	validate *ScoreValidator
	store    LeaderboardStore
	db       *DB // nil when running store-only (tests)

	startLimit  *rateLimiter
	submitLimit *rateLimiter
}

// NewServer wires the route handlers
func NewServer(cfg Config, hub *Hub, sessions *SessionManager, validate *ScoreValidator, store LeaderboardStore, db *DB) *Server {
	return &Server{
		cfg:         cfg,
		hub:         hub,
		sessions:    sessions,
		validate:    validate,
		store:       store,
		db:          db,
		startLimit:  newRateLimiter(maxStartsPerIP, submitRateWindow),
		submitLimit: newRateLimiter(maxSubmitsPerIP, submitRateWindow),
	}
}

// Routes builds the HTTP router
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/game/start", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/api/game/score", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/api/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/api/leaderboard/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/qr", s.handleQR).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)

	// Static client files with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(s.cfg.ClientDir))
	r.PathPrefix("/").Handler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fs.ServeHTTP(w, req)
	}))

	return r
}

// handleStart issues a fresh single-use game session
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !s.startLimit.allow(extractIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, failResp{Kind: "rate-limited", Message: "too many game starts"})
		return
	}

	token, err := s.sessions.StartGame()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResp{OK: true, GameID: token})
}

// handleSubmit validates a score submission and appends it on success
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !s.submitLimit.allow(ip) {
		writeJSON(w, http.StatusTooManyRequests, failResp{Kind: "rate-limited", Message: "too many submissions"})
		return
	}

	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, invalidArgument("malformed request body"))
		return
	}

	rec, err := s.validate.Submit(req.GameID, req.Username, req.Score, ip)
	if err != nil {
		writeFailure(w, err)
		return
	}

	// Client-claimed timing is informational only
	if req.ClaimedMs > 0 {
		drift := rec.DurationMs - req.ClaimedMs
		if drift < -2000 || drift > 2000 {
			log.Printf("client clock drift: claimed=%dms server=%dms session=%s", req.ClaimedMs, rec.DurationMs, rec.SessionID)
		}
	}

	writeJSON(w, http.StatusOK, okResp{OK: true, ID: rec.ID})
}

// handleLeaderboard serves the top of the board
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := leaderboardTopN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v < leaderboardTopN {
			limit = v
		}
	}

	recs, err := s.store.TopScores(limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	entries := make([]BoardEntry, 0, len(recs))
	for i, rec := range recs {
		entries = append(entries, BoardEntry{Rank: i + 1, Username: rec.Username, Score: rec.Score})
	}
	writeJSON(w, http.StatusOK, BoardMsg{Entries: entries})
}

// handleDelete removes a leaderboard entry. Moderation only: requires the
// admin token, verified against its bcrypt hash from config.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AdminTokenHash == "" || s.db == nil {
		writeJSON(w, http.StatusNotFound, failResp{Kind: "not-found", Message: "moderation disabled"})
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminTokenHash), []byte(token)) != nil {
		writeJSON(w, http.StatusForbidden, failResp{Kind: KindPermissionDenied, Message: "bad admin token"})
		return
	}

	id := mux.Vars(r)["id"]
	deleted, err := s.db.DeleteScore(id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, failResp{Kind: "not-found", Message: "no such record"})
		return
	}
	log.Printf("moderation: deleted leaderboard record %s", id)
	writeJSON(w, http.StatusOK, okResp{OK: true, ID: id})
}

// handleQR renders the public game URL as a PNG for the clubhouse display
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	size := qrDefaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 128 && v <= 1024 {
			size = v
		}
	}

	png, err := qrcode.Encode(s.cfg.PublicURL, qrcode.Medium, size)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleWS upgrades the connection and attaches a fresh simulation
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !s.hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	s.hub.TrackConnect(ip)

	client := NewClient(s.hub, conn, ip)
	s.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
	client.Start()
}
