package game

import "testing"

func TestTileKindBlockingAndCapturable(t *testing.T) {
	cases := []struct {
		kind       TileKind
		blocking   bool
		capturable bool
	}{
		{Walkable, false, true},
		{Generator, false, true},
		{Wall, true, false},
		{Mirror, true, false},
		{Hole, true, false},
		{Boundary, true, false},
	}
	for _, c := range cases {
		if got := c.kind.Blocking(); got != c.blocking {
			t.Errorf("%v.Blocking() = %v, want %v", c.kind, got, c.blocking)
		}
		if got := c.kind.Capturable(); got != c.capturable {
			t.Errorf("%v.Capturable() = %v, want %v", c.kind, got, c.capturable)
		}
	}
}

func TestGridAtOutOfBoundsIsBoundary(t *testing.T) {
	g := NewGrid(5, 5, Walkable)
	if got := g.At(-1, 0); got != Boundary {
		t.Errorf("At(-1,0) = %v, want Boundary", got)
	}
	if got := g.At(5, 0); got != Boundary {
		t.Errorf("At(5,0) = %v, want Boundary", got)
	}
	if got := g.At(0, 5); got != Boundary {
		t.Errorf("At(0,5) = %v, want Boundary", got)
	}
}

func TestGridSetAndAt(t *testing.T) {
	g := NewGrid(5, 5, Walkable)
	g.Set(2, 3, Wall)
	if got := g.At(2, 3); got != Wall {
		t.Errorf("At(2,3) = %v, want Wall", got)
	}
	if got := g.At(2, 2); got != Walkable {
		t.Errorf("At(2,2) = %v, want Walkable", got)
	}
}

func TestGridSetOutOfBoundsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-bounds Set")
		}
	}()
	g := NewGrid(5, 5, Walkable)
	g.Set(10, 10, Wall)
}

func TestCapturableTilesExcludesBlocking(t *testing.T) {
	g := NewGrid(3, 3, Walkable)
	g.Set(1, 1, Wall)
	g.Set(0, 0, Generator)
	tiles := g.CapturableTiles()
	if len(tiles) != 8 {
		t.Fatalf("expected 8 capturable tiles, got %d", len(tiles))
	}
	for _, c := range tiles {
		if c.X == 1 && c.Y == 1 {
			t.Error("wall tile should not be capturable")
		}
	}
}

func TestOwnershipCaptureRejectsNonCapturableKeys(t *testing.T) {
	g := NewGrid(3, 3, Walkable)
	g.Set(1, 1, Wall)
	own := NewOwnership(g)

	own.Capture(Coord{X: 1, Y: 1}, "alice") // not a key, rejected silently
	if _, ok := own[Coord{X: 1, Y: 1}]; ok {
		t.Error("wall coord should never become an ownership key")
	}

	own.Capture(Coord{X: 0, Y: 0}, "alice")
	if own[Coord{X: 0, Y: 0}] != "alice" {
		t.Error("capturable tile should accept capture")
	}
}

func TestOwnershipCountOwned(t *testing.T) {
	g := NewGrid(3, 3, Walkable)
	own := NewOwnership(g)
	own.Capture(Coord{X: 0, Y: 0}, "alice")
	own.Capture(Coord{X: 1, Y: 0}, "alice")
	own.Capture(Coord{X: 2, Y: 0}, "bob")

	if got := own.CountOwned("alice"); got != 2 {
		t.Errorf("CountOwned(alice) = %d, want 2", got)
	}
	if got := own.CountOwned("bob"); got != 1 {
		t.Errorf("CountOwned(bob) = %d, want 1", got)
	}
	if got := own.CountOwned("nobody"); got != 0 {
		t.Errorf("CountOwned(nobody) = %d, want 0", got)
	}
}

func TestEncodeCoordKey(t *testing.T) {
	if got := EncodeCoordKey(Coord{X: 3, Y: -2}); got != "3,-2" {
		t.Errorf("EncodeCoordKey = %q, want %q", got, "3,-2")
	}
}
