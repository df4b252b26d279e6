package game

import "fmt"

// TileKind is the closed tagged variant of everything a grid cell can be.
// Mirror orientation is not modeled: reflection is resolved geometrically
// per entry face, not by an orientation flag (see Beam.reflect).
type TileKind uint8

const (
	Walkable TileKind = iota
	Generator
	Wall
	Mirror
	Hole
	// Boundary is a synthetic sentinel returned for any out-of-bounds read.
	// It is never stored in a Grid's tile slice.
	Boundary
)

func (k TileKind) String() string {
	switch k {
	case Walkable:
		return "walkable"
	case Generator:
		return "generator"
	case Wall:
		return "wall"
	case Mirror:
		return "mirror"
	case Hole:
		return "hole"
	case Boundary:
		return "boundary"
	default:
		return "unknown"
	}
}

// Blocking reports whether a beam or player body cannot occupy this tile.
func (k TileKind) Blocking() bool {
	switch k {
	case Wall, Mirror, Hole, Boundary:
		return true
	default:
		return false
	}
}

// Capturable reports whether the tile kind can carry an ownership entry.
func (k TileKind) Capturable() bool {
	return k == Walkable || k == Generator
}

// Coord is a compact integer tile coordinate, used as the in-memory key for
// ownership and generator lookups. The wire protocol still serializes these
// as "x,y" strings for client compatibility (see EncodeCoordKey).
type Coord struct {
	X, Y int16
}

// EncodeCoordKey renders a Coord using the wire "x,y" format.
func EncodeCoordKey(c Coord) string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Grid is the static W×H tile layout for one match. It never mutates after
// generation; ownership is tracked separately (see Ownership).
type Grid struct {
	Width, Height int
	tiles         []TileKind
	Generators    []Coord // read-only after generation, in placement order
	SpawnPoints   [4]Coord
}

// NewGrid allocates a W×H grid filled with the given default kind.
func NewGrid(width, height int, fill TileKind) *Grid {
	tiles := make([]TileKind, width*height)
	for i := range tiles {
		tiles[i] = fill
	}
	return &Grid{Width: width, Height: height, tiles: tiles}
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// At returns the tile kind at (x, y), or Boundary if out of bounds.
func (g *Grid) At(x, y int) TileKind {
	if !g.inBounds(x, y) {
		return Boundary
	}
	return g.tiles[y*g.Width+x]
}

// AtCoord is a Coord-typed convenience wrapper around At.
func (g *Grid) AtCoord(c Coord) TileKind {
	return g.At(int(c.X), int(c.Y))
}

// Set overwrites the tile kind at (x, y). Panics if out of bounds -
// generation code is expected to only ever write within the grid.
func (g *Grid) Set(x, y int, k TileKind) {
	if !g.inBounds(x, y) {
		panic(fmt.Sprintf("game: tile (%d,%d) out of bounds for %dx%d grid", x, y, g.Width, g.Height))
	}
	g.tiles[y*g.Width+x] = k
}

// CapturableTiles enumerates every walkable/generator coordinate, in
// row-major order. Used to build the initial Ownership map and to compute
// the total_capturable_tiles denominator for end-of-match scoring.
func (g *Grid) CapturableTiles() []Coord {
	out := make([]Coord, 0, g.Width*g.Height/2)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.tiles[y*g.Width+x].Capturable() {
				out = append(out, Coord{X: int16(x), Y: int16(y)})
			}
		}
	}
	return out
}

// Ownership maps capturable tile coordinates to an owning user id. Keys are
// always a subset of the grid's capturable tiles; wall/mirror/hole tiles are
// never present as keys (see Grid.CapturableTiles).
type Ownership map[Coord]string

// NewOwnership seeds an ownership map with every capturable tile unowned.
func NewOwnership(g *Grid) Ownership {
	tiles := g.CapturableTiles()
	own := make(Ownership, len(tiles))
	for _, c := range tiles {
		own[c] = ""
	}
	return own
}

// Capture assigns owner to tile c, if and only if c is a capturable tile
// already present in the map (wall/mirror/hole coordinates are rejected).
func (o Ownership) Capture(c Coord, owner string) {
	if _, ok := o[c]; ok {
		o[c] = owner
	}
}

// CountOwned returns the number of tiles owned by userID.
func (o Ownership) CountOwned(userID string) int {
	n := 0
	for _, owner := range o {
		if owner == userID {
			n++
		}
	}
	return n
}
