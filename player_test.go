package main

import (
	"math"
	"testing"
)

func TestPlayerGravity(t *testing.T) {
	p := NewPlayer()
	y0 := p.Y

	p.Step(RefFrameMs)
	if p.VY != Gravity {
		t.Errorf("vy after one reference frame = %v, want %v", p.VY, Gravity)
	}
	if p.Y <= y0 {
		t.Errorf("player should fall: y %v -> %v", y0, p.Y)
	}

	// Velocity keeps accumulating
	p.Step(RefFrameMs)
	if math.Abs(p.VY-2*Gravity) > 1e-9 {
		t.Errorf("vy after two frames = %v, want %v", p.VY, 2*Gravity)
	}
}

func TestPlayerTickRateIndependence(t *testing.T) {
	// One 33.34ms tick and two 16.67ms ticks should land close together
	coarse := NewPlayer()
	coarse.Step(2 * RefFrameMs)

	fine := NewPlayer()
	fine.Step(RefFrameMs)
	fine.Step(RefFrameMs)

	if math.Abs(coarse.VY-fine.VY) > 1e-9 {
		t.Errorf("vy diverged: coarse %v fine %v", coarse.VY, fine.VY)
	}
	// Position integrates v*dt, so coarse vs fine differ by at most one
	// frame's worth of acceleration
	if math.Abs(coarse.Y-fine.Y) > Gravity*2 {
		t.Errorf("y diverged too far: coarse %v fine %v", coarse.Y, fine.Y)
	}
}

func TestPlayerFlap(t *testing.T) {
	p := NewPlayer()
	p.Step(RefFrameMs * 10)
	p.Flap()
	if p.VY != FlapImpulse {
		t.Errorf("flap vy = %v, want %v", p.VY, FlapImpulse)
	}

	p.Alive = false
	p.VY = 3
	p.Flap()
	if p.VY != 3 {
		t.Error("dead player should not flap")
	}
}

func TestPlayerDeadDoesNotMove(t *testing.T) {
	p := NewPlayer()
	p.Alive = false
	y0, vy0 := p.Y, p.VY
	p.Step(RefFrameMs)
	if p.Y != y0 || p.VY != vy0 {
		t.Error("dead player should not integrate")
	}
}

func TestPlayerOutOfBounds(t *testing.T) {
	p := NewPlayer()
	if p.OutOfBounds() {
		t.Error("fresh player should be in bounds")
	}

	p.Y = -BoundsPad - 1
	if !p.OutOfBounds() {
		t.Error("player above the play area should be out")
	}

	p.Y = PlayHeight + BoundsPad + 1
	if !p.OutOfBounds() {
		t.Error("player below the play area should be out")
	}

	p.Y = PlayHeight + BoundsPad - 1
	if p.OutOfBounds() {
		t.Error("player inside the margin should be in bounds")
	}
}
