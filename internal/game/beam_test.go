package game

import (
	"math"
	"testing"
)

func idSeq() func() string {
	n := 0
	return func() string {
		n++
		return "beam-" + string(rune('a'+n))
	}
}

// TestNewBeamMuzzleBlockedWall is boundary behavior B1: a shot whose muzzle
// sample lands on a blocking tile produces no beam.
func TestNewBeamMuzzleBlockedWall(t *testing.T) {
	g := NewGrid(5, 5, Walkable)
	g.Set(3, 2, Wall) // directly in front of a shooter at (2,2) firing +x
	_, ok := NewBeam(idSeq()(), "alice", "#fff", 2.0, 2.0, 1, 0, g, false)
	if ok {
		t.Fatal("expected no beam when muzzle lands on a wall")
	}
}

func TestNewBeamMuzzleBlockedHoleAndBoundary(t *testing.T) {
	g := NewGrid(5, 5, Walkable)
	g.Set(3, 2, Hole)
	if _, ok := NewBeam(idSeq()(), "a", "#fff", 2.0, 2.0, 1, 0, g, false); ok {
		t.Fatal("expected no beam when muzzle lands on a hole")
	}

	// Near the map edge, muzzle sample may fall out of bounds (Boundary).
	if _, ok := NewBeam(idSeq()(), "a", "#fff", 0.0, 0.0, -1, 0, g, false); ok {
		t.Fatal("expected no beam when muzzle lands out of bounds")
	}
}

func TestNewBeamMuzzleAllowsMirror(t *testing.T) {
	// The spec only blocks wall/hole/boundary at the muzzle; a mirror at
	// the muzzle tile is not one of the blocking kinds listed in §4.2.
	g := NewGrid(5, 5, Walkable)
	g.Set(3, 2, Mirror)
	_, ok := NewBeam(idSeq()(), "a", "#fff", 2.0, 2.0, 1, 0, g, false)
	if !ok {
		t.Fatal("expected a beam to be produced when muzzle tile is a mirror")
	}
}

func TestNewBeamZeroDirectionDefaultsToPlusX(t *testing.T) {
	g := NewGrid(5, 5, Walkable)
	b, ok := NewBeam(idSeq()(), "a", "#fff", 2, 2, 0, 0, g, false)
	if !ok {
		t.Fatal("expected beam")
	}
	if b.DirX != 1 || b.DirY != 0 {
		t.Errorf("zero-direction beam should default to (1,0), got (%v,%v)", b.DirX, b.DirY)
	}
}

func TestNewBeamSpeedBoosted(t *testing.T) {
	g := NewGrid(5, 5, Walkable)
	b, ok := NewBeam(idSeq()(), "a", "#fff", 2, 2, 1, 0, g, true)
	if !ok || b.Speed != beamSpeedFast {
		t.Errorf("expected boosted speed %v, got %v (ok=%v)", beamSpeedFast, b.Speed, ok)
	}
	b2, ok2 := NewBeam(idSeq()(), "a", "#fff", 2, 2, 1, 0, g, false)
	if !ok2 || b2.Speed != beamSpeedSlow {
		t.Errorf("expected base speed %v, got %v (ok=%v)", beamSpeedSlow, b2.Speed, ok2)
	}
}

func TestShootBeamsMultishotCount(t *testing.T) {
	g := NewGrid(20, 20, Walkable)
	beams := ShootBeams(idSeq(), "a", "#fff", 10, 10, 1, 0, g, true, false, false)
	if len(beams) != 3 {
		t.Fatalf("expected 3 multishot beams, got %d", len(beams))
	}
	// θ, θ+π/12, θ-π/12 at θ=0.
	want := []float64{0, multishotSpan, -multishotSpan}
	for i, b := range beams {
		got := math.Atan2(b.DirY, b.DirX)
		if math.Abs(got-want[i]) > 1e-9 {
			t.Errorf("beam %d angle = %v, want %v", i, got, want[i])
		}
	}
}

func TestShootBeamsSingleWhenNotMultishot(t *testing.T) {
	g := NewGrid(20, 20, Walkable)
	beams := ShootBeams(idSeq(), "a", "#fff", 10, 10, 1, 0, g, false, true, false)
	if len(beams) != 1 {
		t.Fatalf("expected 1 beam, got %d", len(beams))
	}
	if !beams[0].Piercing {
		t.Error("expected piercing flag to carry onto the beam")
	}
}

// TestBeamStraightRowNoSkips is boundary behavior B2: firing exactly along
// +x from an integer y traverses one row of tiles with no skips.
func TestBeamStraightRowNoSkips(t *testing.T) {
	tiles := traverseDDA(0, 2, 4, 2)
	if len(tiles) != 5 {
		t.Fatalf("expected 5 tiles in a 4-tile straight traversal, got %d: %v", len(tiles), tiles)
	}
	for i, c := range tiles {
		if c.Y != 2 {
			t.Errorf("tile %d has Y=%d, want 2 (no row skip)", i, c.Y)
		}
		if int(c.X) != i {
			t.Errorf("tile %d has X=%d, want %d (sequential, no skip)", i, c.X, i)
		}
	}
}

func TestBeamDiagonalStepsBothAxesSimultaneously(t *testing.T) {
	// A muzzle fired exactly along a 45-degree diagonal must cross both
	// axes at once per tick, not via a Bresenham midpoint rule.
	tiles := traverseDDA(0, 0, 3, 3)
	for i, c := range tiles {
		if int(c.X) != i || int(c.Y) != i {
			t.Errorf("tile %d = %v, want (%d,%d)", i, c, i, i)
		}
	}
}

func TestBeamUpdateCapturesWalkableTiles(t *testing.T) {
	g := NewGrid(20, 20, Walkable)
	b := &Beam{ID: "x", OwnerUserID: "a", X: 5, Y: 5, DirX: 1, DirY: 0, Speed: 15, Active: true}
	captured := b.Update(0.05, g)
	if len(captured) == 0 {
		t.Fatal("expected at least one tile captured on open ground")
	}
	if !b.Active {
		t.Error("beam should remain active on open ground")
	}
}

func TestBeamUpdateStopsAtWall(t *testing.T) {
	g := NewGrid(20, 20, Walkable)
	g.Set(10, 5, Wall)
	b := &Beam{ID: "x", OwnerUserID: "a", X: 5, Y: 5, DirX: 1, DirY: 0, Speed: 30, Active: true}
	for i := 0; i < 50 && b.Active; i++ {
		b.Update(0.05, g)
	}
	if b.Active {
		t.Fatal("beam should have stopped at the wall")
	}
	if b.X >= 9.5 {
		t.Errorf("beam should stop before the wall's entry face, got x=%v", b.X)
	}
}

func TestBeamPiercingPassesThroughOneWall(t *testing.T) {
	g := NewGrid(20, 20, Walkable)
	g.Set(8, 5, Wall)
	b := &Beam{ID: "x", OwnerUserID: "a", X: 5, Y: 5, DirX: 1, DirY: 0, Speed: 30, Active: true, Piercing: true}
	for i := 0; i < 20 && b.Active; i++ {
		b.Update(0.05, g)
	}
	if !b.PiercingUsed {
		t.Error("expected piercing to have been consumed")
	}
	if b.X < 8.5 {
		t.Errorf("expected beam to pass the wall at x=8, got x=%v", b.X)
	}
}

func TestBeamStopsAtHole(t *testing.T) {
	g := NewGrid(20, 20, Walkable)
	g.Set(8, 5, Hole)
	b := &Beam{ID: "x", OwnerUserID: "a", X: 5, Y: 5, DirX: 1, DirY: 0, Speed: 30, Active: true}
	for i := 0; i < 20 && b.Active; i++ {
		b.Update(0.05, g)
	}
	if b.Active {
		t.Fatal("beam should be inactive after hitting a hole")
	}
}

func TestBeamExpiresAfterMaxLifetime(t *testing.T) {
	// 200 wide: at speed 15 the beam is near x=175 when its 10s lifetime
	// ends, so it expires by age rather than by reaching the boundary.
	g := NewGrid(200, 50, Walkable)
	b := &Beam{ID: "x", OwnerUserID: "a", X: 25, Y: 25, DirX: 1, DirY: 0, Speed: 15, Active: true}
	for i := 0; i < 300 && b.Active; i++ {
		b.Update(0.05, g)
	}
	if b.Active {
		t.Fatal("beam should have expired by 10 seconds of time_alive")
	}
}

// TestMirrorReflection is scenario 2: a beam travelling +x hits the
// mirror's left face and reflects back to -x. This mirrors the spec's example using a
// mirror at (5,5), beam origin (2,5) direction (1,0), speed 15.
func TestMirrorReflection(t *testing.T) {
	g := NewGrid(10, 10, Walkable)
	g.Set(5, 5, Mirror)
	b := &Beam{ID: "x", OwnerUserID: "a", X: 2.0, Y: 5.0, DirX: 1, DirY: 0, Speed: 15, Active: true}

	for i := 0; i < 40 && b.DirX > 0; i++ {
		b.Update(0.05, g)
	}

	if b.DirX != -1 || b.DirY != 0 {
		t.Fatalf("expected reflected direction (-1,0), got (%v,%v)", b.DirX, b.DirY)
	}
	if !b.Active {
		t.Fatal("beam should still be active after a clean reflection")
	}
	if math.Abs(b.X-4.4) > 0.11 || math.Abs(b.Y-5.0) > 0.11 {
		t.Errorf("expected position near (4.4,5.0) within 0.11, got (%v,%v)", b.X, b.Y)
	}
}

// TestMirrorReflectionTerminatesOnBlockedReentry is boundary behavior B3:
// if the reflected exit cell is itself blocking, the beam terminates at
// the entry point instead of continuing. The diagonal beam enters the
// mirror through its left face at (4.5, 5.45); the reflected path leaves
// into (4,6), which is a wall.
func TestMirrorReflectionTerminatesOnBlockedReentry(t *testing.T) {
	g := NewGrid(10, 10, Walkable)
	g.Set(5, 5, Mirror)
	g.Set(4, 6, Wall) // the cell the reflected path exits into

	b := &Beam{ID: "x", OwnerUserID: "a", X: 2.5, Y: 3.45, DirX: math.Sqrt2 / 2, DirY: math.Sqrt2 / 2, Speed: 15, Active: true}
	for i := 0; i < 40 && b.Active; i++ {
		b.Update(0.05, g)
	}
	if b.Active {
		t.Fatal("beam should terminate when reflection re-entry is blocked")
	}
	if math.Abs(b.X-4.5) > 0.05 {
		t.Errorf("expected beam parked at mirror entry x=4.5, got %v", b.X)
	}
}

func TestTileEdgeHitAxisAligned(t *testing.T) {
	face, ex, ey, _, ok := tileEdgeHit(2, 5, 1, 0, 5, 5)
	if !ok {
		t.Fatal("expected a hit")
	}
	if face != faceLeft {
		t.Errorf("expected left face entry, got %c", face)
	}
	if math.Abs(ex-4.5) > 1e-9 || math.Abs(ey-5) > 1e-9 {
		t.Errorf("expected entry (4.5,5), got (%v,%v)", ex, ey)
	}
}

func TestCoordAt(t *testing.T) {
	if c := coordAt(5.2, 5.49); c != (Coord{X: 5, Y: 5}) {
		t.Errorf("coordAt(5.2,5.49) = %v, want (5,5)", c)
	}
	if c := coordAt(4.51, 4.51); c != (Coord{X: 5, Y: 5}) {
		t.Errorf("coordAt(4.51,4.51) = %v, want (5,5)", c)
	}
}
