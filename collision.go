package main

// Hitbox shrink factors relative to sprite size. Sprites have generous
// transparent margins, so collisions use smaller boxes to stay visually fair.
const (
	PlayerHitboxW   = 0.75
	PlayerHitboxH   = 0.35
	PlayerHitboxOfX = -5.0 // nudge left: the propeller is not a hit surface
	EnemyHitboxW    = 0.85
	EnemyHitboxH    = 0.6
)

// Box is an axis-aligned rectangle anchored at its top-left corner
type Box struct {
	X, Y, W, H float64
}

// Overlap reports whether two boxes intersect (separating-axis test)
func Overlap(a, b Box) bool {
	return !(a.X+a.W < b.X || a.X > b.X+b.W || a.Y+a.H < b.Y || a.Y > b.Y+b.H)
}

// PlayerHitbox returns the shrunk collision box for a player
func PlayerHitbox(p *Player) Box {
	w := p.W * PlayerHitboxW
	h := p.H * PlayerHitboxH
	return Box{
		X: p.X - w/2 + PlayerHitboxOfX,
		Y: p.Y - h/2,
		W: w,
		H: h,
	}
}

// EnemyHitbox returns the shrunk collision box for an enemy
func EnemyHitbox(e *Enemy) Box {
	w := e.W * EnemyHitboxW
	h := e.H * EnemyHitboxH
	return Box{
		X: e.X - w/2,
		Y: e.Y - h/2,
		W: w,
		H: h,
	}
}

// PlayerHitsEnemy checks the shrunk boxes of a player and an enemy
func PlayerHitsEnemy(p *Player, e *Enemy) bool {
	return Overlap(PlayerHitbox(p), EnemyHitbox(e))
}
