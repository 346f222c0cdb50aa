package main

import "testing"

func TestEnemyMoves(t *testing.T) {
	e := NewEnemy(300, 4)
	x0 := e.X
	e.Step(RefFrameMs)
	if e.X <= x0 {
		t.Errorf("enemy should move right: %v -> %v", x0, e.X)
	}

	// Faster enemies cover more ground
	fast := NewEnemy(300, 8)
	fast.X = x0
	fast.Step(RefFrameMs)
	if fast.X-x0 <= e.X-x0 {
		t.Error("faster enemy should cover more distance")
	}
}

func TestEnemyAnimationCycles(t *testing.T) {
	e := NewEnemy(300, 3)
	e.Frame = 1
	e.AnimTimer = 0

	// Just under the frame duration — no advance
	e.Step(EnemyFrameMs - 1)
	if e.Frame != 1 {
		t.Errorf("frame advanced early: %d", e.Frame)
	}

	e.Step(10)
	if e.Frame != 2 {
		t.Errorf("frame = %d, want 2", e.Frame)
	}

	// Full cycle wraps 4 -> 1
	e.Frame = 4
	e.AnimTimer = EnemyFrameMs + 1
	e.Step(1)
	if e.Frame != 1 {
		t.Errorf("frame = %d, want wrap to 1", e.Frame)
	}
}

func TestEnemyPrunedOffScreen(t *testing.T) {
	e := NewEnemy(300, 5)
	e.X = PlayWidth + EnemyExitPad - 1
	e.Step(RefFrameMs)
	if e.Alive {
		t.Error("enemy past the exit margin should be dead")
	}
}
