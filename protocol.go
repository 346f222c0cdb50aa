package main

import "encoding/json"

// Client -> Server message types
const (
	MsgIntent = "intent" // player input for the simulation
	MsgBoard  = "board"  // leaderboard fetch
)

// Server -> Client message types
const (
	MsgWelcome = "welcome"
	MsgState   = "state" // binary msgpack StateSnapshot
	MsgOver    = "over"
	MsgBoardRe = "board"
	MsgError   = "error"
)

// Intent actions. Input sources push intents; the simulation loop drains
// them once per tick so ordering stays deterministic.
const (
	ActFlap    = "flap"
	ActStart   = "start"
	ActReplay  = "replay"
	ActMenu    = "menu"
	ActVariant = "variant"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// Intent is one queued player input
type Intent struct {
	Action  string `json:"a"`
	Variant string `json:"v,omitempty"` // plane variant for ActVariant
}

// BoardReq asks for the top of the leaderboard
type BoardReq struct {
	Limit int `json:"limit,omitempty"`
}

// WelcomeMsg is sent right after the websocket upgrade
type WelcomeMsg struct {
	PlayW    float64  `json:"w"`
	PlayH    float64  `json:"h"`
	Variants []string `json:"variants"`
}

// PlayerState is the player part of a state snapshot
type PlayerState struct {
	X     float64 `msgpack:"x"`
	Y     float64 `msgpack:"y"`
	VY    float64 `msgpack:"vy"`
	Alive bool    `msgpack:"a"`
}

// EnemyState is one enemy in a state snapshot
type EnemyState struct {
	ID    string  `msgpack:"id"`
	X     float64 `msgpack:"x"`
	Y     float64 `msgpack:"y"`
	Frame int     `msgpack:"f"`
}

// StateSnapshot is the full simulation state, broadcast as msgpack binary
type StateSnapshot struct {
	Tick      uint64       `msgpack:"tick"`
	Phase     string       `msgpack:"ph"`
	Score     int          `msgpack:"sc"`
	BgX       float64      `msgpack:"bg"`
	Countdown string       `msgpack:"cd,omitempty"`
	BannerX   float64      `msgpack:"bx,omitempty"`
	Variant   string       `msgpack:"pv"`
	Player    *PlayerState `msgpack:"p,omitempty"`
	Enemies   []EnemyState `msgpack:"e"`
}

// GameOverMsg closes out a run. GameID is the session token the client
// needs to submit the score; empty if the session could not be started.
type GameOverMsg struct {
	Score      int    `json:"score"`
	DurationMs int64  `json:"duration_ms"`
	GameID     string `json:"gameId,omitempty"`
}

// BoardEntry is one leaderboard row as shown to players
type BoardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// BoardMsg is the leaderboard fetch response
type BoardMsg struct {
	Entries []BoardEntry `json:"entries"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
