package main

import "math"

const (
	InitialSpawnIntervalMs = 1200.0
	MinSpawnIntervalMs     = 300.0
	DifficultyRampMs       = 80000.0

	BurstChance = 0.3   // chance a spawn is followed by a near-immediate one
	BurstGapMs  = 150.0 // accumulator shortfall left after a burst spawn

	EnemyBaseSpeedMin = 2.5 // px per reference frame at ratio 0
	EnemyBaseSpeedMax = 8.0 // px per reference frame at ratio 1
	EnemySpeedJitter  = 1.5

	TrackPlayerChance = 0.9   // spawn near the player's height
	TrackSpread       = 120.0 // vertical jitter around the player
	MinSeparation     = 25.0  // never spawn dead-on the player
	SeparationPush    = 30.0
	SpawnEdgePad      = 50.0 // keep spawns away from the vertical bounds
)

// SpawnScheduler decides when and where enemies appear. Difficulty ramps
// with elapsed play time: the spawn interval shrinks linearly to a floor
// and enemy speed grows sub-linearly toward its maximum.
type SpawnScheduler struct {
	acc     float64 // ms since last spawn (or burst carry-over)
	elapsed float64 // ms of play time seen

	rand func() float64 // injectable for tests, defaults to randFloat
}

// NewSpawnScheduler creates a scheduler with zeroed clocks
func NewSpawnScheduler() *SpawnScheduler {
	return &SpawnScheduler{rand: randFloat}
}

// DifficultyRatio returns ramp progress in [0,1], sub-linearly mapped so
// the game gets hard quickly at first and plateaus late.
func (s *SpawnScheduler) DifficultyRatio() float64 {
	raw := math.Min(1, s.elapsed/DifficultyRampMs)
	return math.Pow(raw, 0.8)
}

// Interval returns the current spawn interval in ms, clamped to the floor
func (s *SpawnScheduler) Interval() float64 {
	ramp := s.elapsed / DifficultyRampMs
	interval := InitialSpawnIntervalMs - ramp*(InitialSpawnIntervalMs-MinSpawnIntervalMs)
	return math.Max(MinSpawnIntervalMs, interval)
}

// Advance accumulates dt milliseconds and returns a newly spawned enemy,
// or nil. At most one enemy spawns per call; a burst shows up as a second
// spawn a fraction of an interval later.
func (s *SpawnScheduler) Advance(dt, playerY float64) *Enemy {
	s.elapsed += dt
	s.acc += dt

	interval := s.Interval()
	if s.acc <= interval {
		return nil
	}

	e := s.spawn(playerY)
	if s.rand() < BurstChance {
		s.acc = interval - BurstGapMs
	} else {
		s.acc = 0
	}
	return e
}

func (s *SpawnScheduler) spawn(playerY float64) *Enemy {
	ratio := s.DifficultyRatio()
	base := EnemyBaseSpeedMin + ratio*(EnemyBaseSpeedMax-EnemyBaseSpeedMin)
	speed := base + s.rand()*EnemySpeedJitter

	var y float64
	if s.rand() < TrackPlayerChance {
		y = playerY + (s.rand()-0.5)*TrackSpread

		// Never drop a bird straight onto the plane — an unavoidable
		// spawn reads as a cheap death.
		if math.Abs(y-playerY) < MinSeparation {
			if y > playerY {
				y += SeparationPush
			} else {
				y -= SeparationPush
			}
		}
		y = Clamp(y, SpawnEdgePad, PlayHeight-SpawnEdgePad)
	} else {
		y = s.rand()*(PlayHeight-2*SpawnEdgePad) + SpawnEdgePad
	}

	return NewEnemy(y, speed)
}
