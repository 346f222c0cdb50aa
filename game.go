package main

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 60 // simulation ticks per second
	BroadcastRate  = 30 // state snapshots per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate

	TransitionStepMs = 700.0 // one countdown step ("3", "2", "1", "GO !")
	TransitionSteps  = 4
	BannerSpeedPx    = 5.0  // banner px per reference frame, leftward
	BgScrollPx       = 0.35 // background px per reference frame

	ScorePerMs = 0.01 // score accrues with survival time

	maxEnemies      = 128
	intentQueueSize = 64
)

// GamePhase is the simulation state machine
type GamePhase int

const (
	PhaseMenu GamePhase = iota
	PhaseTransition
	PhaseRunning
	PhaseGameOver
)

func (ph GamePhase) String() string {
	switch ph {
	case PhaseTransition:
		return "transition"
	case PhaseRunning:
		return "running"
	case PhaseGameOver:
		return "gameOver"
	default:
		return "menu"
	}
}

// PlaneVariants are the selectable player sprites. Cosmetic only.
var PlaneVariants = []string{"biplane", "seaplane", "fighter", "warbird"}

// Broadcaster pushes messages to the connected client without blocking
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// SessionStarter issues the single-use score-submission session for a run.
// A nil starter runs the simulation without submission rights.
type SessionStarter interface {
	StartGame() (string, error)
}

// sessionSlot is the async-result slot for the fire-and-forget session
// start. The loop reads it on a later tick; it never waits on it.
type sessionSlot struct {
	mu      sync.Mutex
	token   string
	err     error
	pending bool
}

func (s *sessionSlot) reset() {
	s.mu.Lock()
	s.token, s.err, s.pending = "", nil, true
	s.mu.Unlock()
}

func (s *sessionSlot) set(token string, err error) {
	s.mu.Lock()
	s.token, s.err, s.pending = token, err, false
	s.mu.Unlock()
}

func (s *sessionSlot) get() (token string, err error, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.err, s.pending
}

// Game holds one player's simulation. All mutable state lives here; the
// loop driver owns it exclusively and everything else talks to it through
// the intent queue.
type Game struct {
	mu      sync.Mutex
	phase   GamePhase
	player  *Player
	enemies []*Enemy
	spawner *SpawnScheduler

	score   float64
	elapsed float64 // ms in the running phase
	bgX     float64
	tick    uint64

	transitionTimer float64
	bannerX         float64
	variant         string

	intents chan Intent
	session sessionSlot
	starter SessionStarter
	out     Broadcaster

	running bool
	stop    chan struct{}
}

// NewGame creates a simulation in the menu phase
func NewGame(starter SessionStarter, out Broadcaster) *Game {
	return &Game{
		phase:   PhaseMenu,
		variant: PlaneVariants[0],
		intents: make(chan Intent, intentQueueSize),
		starter: starter,
		out:     out,
		stop:    make(chan struct{}),
	}
}

// QueueIntent pushes a player input for the next tick. Drops when the
// queue is full rather than blocking the caller.
func (g *Game) QueueIntent(i Intent) {
	select {
	case g.intents <- i:
	default:
	}
}

// Run drives the simulation until Stop. Tick spacing is measured from the
// wall clock, so a delayed tick still advances the right amount of time.
func (g *Game) Run() {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := float64(now.Sub(last).Microseconds()) / 1000.0
			last = now
			g.Step(dt)
			if g.tickCount()%BroadcastEvery == 0 {
				g.broadcastState()
			}
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the simulation loop
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		g.running = false
		close(g.stop)
	}
}

// Phase returns the current state-machine phase
func (g *Game) Phase() GamePhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Score returns the current (floored) score
func (g *Game) Score() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.score)
}

func (g *Game) tickCount() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}

// Step advances the simulation by dt milliseconds: drain intents, scroll
// the background, then run the phase logic.
func (g *Game) Step(dt float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	g.drainIntents()

	g.bgX = math.Mod(g.bgX+BgScrollPx*dt/RefFrameMs, PlayWidth)

	switch g.phase {
	case PhaseTransition:
		// Enemies and physics stay suspended while the banner crosses
		g.transitionTimer += dt
		g.bannerX -= BannerSpeedPx * dt / RefFrameMs
		if g.transitionTimer >= TransitionSteps*TransitionStepMs {
			g.phase = PhaseRunning
		}

	case PhaseRunning:
		g.elapsed += dt

		g.player.Step(dt)
		if g.player.OutOfBounds() {
			g.player.Alive = false
			g.endRun()
			return
		}

		if e := g.spawner.Advance(dt, g.player.Y); e != nil && len(g.enemies) < maxEnemies {
			g.enemies = append(g.enemies, e)
		}

		alive := g.enemies[:0]
		for _, e := range g.enemies {
			e.Step(dt)
			if e.Alive {
				alive = append(alive, e)
			}
		}
		g.enemies = alive

		for _, e := range g.enemies {
			if PlayerHitsEnemy(g.player, e) {
				g.player.Alive = false
				g.endRun()
				return
			}
		}

		g.score += dt * ScorePerMs
	}
}

// drainIntents consumes every queued input. Called with g.mu held.
func (g *Game) drainIntents() {
	for {
		select {
		case i := <-g.intents:
			g.apply(i)
		default:
			return
		}
	}
}

func (g *Game) apply(i Intent) {
	switch i.Action {
	case ActFlap:
		// Ignored outside the running phase (countdown, menu, dead)
		if g.phase == PhaseRunning {
			g.player.Flap()
		}
	case ActStart:
		if g.phase == PhaseMenu {
			g.beginRun()
		}
	case ActReplay:
		if g.phase == PhaseGameOver {
			g.beginRun()
		}
	case ActMenu:
		if g.phase == PhaseGameOver {
			g.phase = PhaseMenu
			g.player = nil
			g.enemies = nil
		}
	case ActVariant:
		if g.phase != PhaseMenu {
			return
		}
		for _, v := range PlaneVariants {
			if v == i.Variant {
				g.variant = v
				return
			}
		}
	}
}

// beginRun resets the run state and fires the session request. The loop
// keeps ticking; the session token lands in the slot whenever it arrives.
func (g *Game) beginRun() {
	g.player = NewPlayer()
	g.enemies = nil
	g.spawner = NewSpawnScheduler()
	g.score = 0
	g.elapsed = 0
	g.transitionTimer = 0
	g.bannerX = PlayWidth + 50
	g.phase = PhaseTransition

	g.session.reset()
	if g.starter == nil {
		g.session.set("", nil)
		return
	}
	go func(slot *sessionSlot, starter SessionStarter) {
		token, err := starter.StartGame()
		if err != nil {
			log.Printf("session start failed: %v", err)
		}
		slot.set(token, err)
	}(&g.session, g.starter)
}

// endRun moves to gameOver and hands the client what it needs to submit.
// Called with g.mu held.
func (g *Game) endRun() {
	g.phase = PhaseGameOver

	token, err, pending := g.session.get()
	if err != nil || pending {
		// Run stays playable without submission rights; the client
		// gets no gameId and shows a retry affordance instead.
		token = ""
	}
	if g.out != nil {
		g.out.SendJSON(Envelope{T: MsgOver, Data: GameOverMsg{
			Score:      int(g.score),
			DurationMs: int64(g.elapsed),
			GameID:     token,
		}})
	}
}

// countdown derives the banner text from the transition timer
func (g *Game) countdown() string {
	switch {
	case g.phase != PhaseTransition:
		return ""
	case g.transitionTimer < TransitionStepMs:
		return "3"
	case g.transitionTimer < 2*TransitionStepMs:
		return "2"
	case g.transitionTimer < 3*TransitionStepMs:
		return "1"
	default:
		return "GO !"
	}
}

// Snapshot captures the current state for broadcast
func (g *Game) Snapshot() StateSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := StateSnapshot{
		Tick:      g.tick,
		Phase:     g.phase.String(),
		Score:     int(g.score),
		BgX:       g.bgX,
		Countdown: g.countdown(),
		Variant:   g.variant,
		Enemies:   make([]EnemyState, 0, len(g.enemies)),
	}
	if g.phase == PhaseTransition {
		snap.BannerX = g.bannerX
	}
	if g.player != nil {
		snap.Player = &PlayerState{
			X:     g.player.X,
			Y:     g.player.Y,
			VY:    g.player.VY,
			Alive: g.player.Alive,
		}
	}
	for _, e := range g.enemies {
		snap.Enemies = append(snap.Enemies, EnemyState{
			ID:    e.ID,
			X:     e.X,
			Y:     e.Y,
			Frame: e.Frame,
		})
	}
	return snap
}

// broadcastState sends the current snapshot as a binary msgpack frame
func (g *Game) broadcastState() {
	if g.out == nil {
		return
	}
	data, err := msgpack.Marshal(g.Snapshot())
	if err != nil {
		return
	}
	g.out.SendBinary(data)
}
