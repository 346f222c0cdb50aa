package main

const (
	EnemySize    = 60.0  // sprite is square
	EnemySpawnX  = -60.0 // enters from the left edge
	EnemyExitPad = 100.0 // pruned once fully past the right edge
	EnemyFrames  = 4
	EnemyFrameMs = 120.0 // animation frame duration
)

// Enemy is one bird flying left-to-right across the play area.
// Speed is per-instance, fixed at spawn time.
type Enemy struct {
	ID        string
	X, Y      float64
	W, H      float64
	Speed     float64 // px per reference frame
	Frame     int     // animation frame 1..4
	AnimTimer float64 // ms since last frame advance
	Alive     bool
}

// NewEnemy creates an enemy at the left edge at the given height and speed
func NewEnemy(y, speed float64) *Enemy {
	return &Enemy{
		ID:        GenerateID(4),
		X:         EnemySpawnX,
		Y:         y,
		W:         EnemySize,
		H:         EnemySize,
		Speed:     speed,
		Frame:     int(randFloat()*EnemyFrames) + 1,
		AnimTimer: randFloat() * 100,
		Alive:     true,
	}
}

// Step moves the enemy and advances its wing animation over dt milliseconds.
// Marks the enemy dead once it is fully off-screen.
func (e *Enemy) Step(dt float64) {
	if !e.Alive {
		return
	}
	e.X += e.Speed * dt / RefFrameMs
	e.AnimTimer += dt
	if e.AnimTimer > EnemyFrameMs {
		e.Frame = (e.Frame % EnemyFrames) + 1
		e.AnimTimer = 0
	}
	if e.X > PlayWidth+EnemyExitPad {
		e.Alive = false
	}
}
