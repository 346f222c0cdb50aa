package main

const (
	PlayWidth  = 360.0
	PlayHeight = 640.0

	// RefFrameMs normalizes motion to a 60 Hz baseline so the simulation
	// behaves the same under variable tick spacing.
	RefFrameMs = 16.67

	Gravity     = 0.7   // vy gained per reference frame
	FlapImpulse = -12.0 // vy set by a flap
	BoundsPad   = 50.0  // how far past the play area the player may fly

	PlayerWidth  = 72.0
	PlayerHeight = 54.0
)

// Player is the controllable plane. Position is the sprite center.
type Player struct {
	X, Y  float64
	VY    float64
	W, H  float64
	Alive bool
}

// NewPlayer creates a player at the standard start position
func NewPlayer() *Player {
	return &Player{
		X:     PlayWidth * 0.8,
		Y:     PlayHeight * 0.45,
		W:     PlayerWidth,
		H:     PlayerHeight,
		Alive: true,
	}
}

// Step integrates gravity and vertical position over dt milliseconds
func (p *Player) Step(dt float64) {
	if !p.Alive {
		return
	}
	dtScale := dt / RefFrameMs
	p.VY += Gravity * dtScale
	p.Y += p.VY * dtScale
}

// Flap sets the vertical velocity to the fixed upward impulse
func (p *Player) Flap() {
	if !p.Alive {
		return
	}
	p.VY = FlapImpulse
}

// OutOfBounds reports whether the player left the play area vertically
func (p *Player) OutOfBounds() bool {
	return p.Y < -BoundsPad || p.Y > PlayHeight+BoundsPad
}
