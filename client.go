package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 1024
	sendBufSize       = 256
	maxMessagesPerSec = 50

	boardDefaultLimit = 10
)

// Client represents one WebSocket connection and owns its simulation
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	game       *Game
	remoteAddr string

	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a Client with a fresh simulation attached
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
	c.game = NewGame(hub.sessions, c)
	return c
}

// Start launches the simulation loop and greets the client
func (c *Client) Start() {
	go c.game.Run()
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		PlayW:    PlayWidth,
		PlayH:    PlayHeight,
		Variants: PlaneVariants,
	}})
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		// Binary flap: single byte 0x01, skips JSON parsing on the hot path
		if msgType == websocket.BinaryMessage && len(message) == 1 && message[0] == 0x01 {
			c.game.QueueIntent(Intent{Action: ActFlap})
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks binary frames (see SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgIntent:
		c.handleIntent(env.D)
	case MsgBoard:
		c.handleBoard(env.D)
	}
}

func (c *Client) handleIntent(data json.RawMessage) {
	var i Intent
	if err := json.Unmarshal(data, &i); err != nil {
		return
	}
	c.game.QueueIntent(i)
}

// handleBoard serves a leaderboard fetch off the read loop. The fetch
// runs in its own goroutine; a failure degrades to an empty board rather
// than surfacing an error mid-game.
func (c *Client) handleBoard(data json.RawMessage) {
	var req BoardReq
	if len(data) > 0 {
		_ = json.Unmarshal(data, &req)
	}
	limit := req.Limit
	if limit <= 0 || limit > boardDefaultLimit {
		limit = boardDefaultLimit
	}

	go func() {
		recs, err := c.hub.store.TopScores(limit)
		if err != nil {
			log.Printf("leaderboard fetch failed: %v", err)
			recs = nil
		}
		entries := make([]BoardEntry, 0, len(recs))
		for i, r := range recs {
			entries = append(entries, BoardEntry{Rank: i + 1, Username: r.Username, Score: r.Score})
		}
		c.SendJSON(Envelope{T: MsgBoardRe, Data: BoardMsg{Entries: entries}})
	}()
}
