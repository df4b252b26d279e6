package game

import (
	"math"
	"math/rand"
)

// DefaultGridSize is the width and height of a generated match grid.
const DefaultGridSize = 50

const spawnMargin = 10 // m in spec §4.1 step 7

// GenerateGrid builds a W×H tile grid with generators, wall clusters, holes,
// mirrors, and four corner spawn clearings, retrying from scratch until all
// four spawns are mutually flood-fill reachable over {walkable, generator}.
func GenerateGrid(size int) *Grid {
	for {
		g := generateOnce(size)
		if spawnsConnected(g) {
			return g
		}
	}
}

func generateOnce(size int) *Grid {
	g := NewGrid(size, size, Walkable)
	paintBorder(g)
	placeGenerators(g)
	placeWallClusters(g)
	placeHoles(g)
	convertMirrors(g)
	placeSpawns(g)
	return g
}

func paintBorder(g *Grid) {
	for x := 0; x < g.Width; x++ {
		g.Set(x, 0, Wall)
		g.Set(x, g.Height-1, Wall)
	}
	for y := 0; y < g.Height; y++ {
		g.Set(0, y, Wall)
		g.Set(g.Width-1, y, Wall)
	}
}

// placeGenerators drops 8-12 generators in [10, W-11]^2, pairwise distance
// >= 15, up to 1000 rejection attempts total; it accepts fewer on exhaustion.
func placeGenerators(g *Grid) {
	target := 8 + rand.Intn(5) // 8..12
	lo, hi := 10, g.Width-11
	if hi < lo {
		return
	}

	attempts := 0
	for len(g.Generators) < target && attempts < 1000 {
		attempts++
		x := lo + rand.Intn(hi-lo+1)
		y := lo + rand.Intn(hi-lo+1)

		ok := true
		for _, gen := range g.Generators {
			if euclid(x, y, int(gen.X), int(gen.Y)) < 15 {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		g.Set(x, y, Generator)
		g.Generators = append(g.Generators, Coord{X: int16(x), Y: int16(y)})
	}
}

// placeWallClusters grows 15-25 random-walk clusters of size [3,10], seeded
// in [5, W-6]^2, only painting tiles that are walkable and >= 3 tiles from
// every generator.
func placeWallClusters(g *Grid) {
	count := 15 + rand.Intn(11) // 15..25
	lo, hi := 5, g.Width-6
	if hi < lo {
		return
	}

	for i := 0; i < count; i++ {
		x := lo + rand.Intn(hi-lo+1)
		y := lo + rand.Intn(hi-lo+1)
		size := 3 + rand.Intn(8) // 3..10
		growCluster(g, x, y, size)
	}
}

func growCluster(g *Grid, startX, startY, size int) {
	cx, cy := startX, startY
	placed := 0
	attempts := 0
	for placed < size && attempts < size*20 {
		attempts++
		if g.inBounds(cx, cy) && g.At(cx, cy) == Walkable && farFromGenerators(g, cx, cy, 3) {
			g.Set(cx, cy, Wall)
			placed++
		}
		switch rand.Intn(4) {
		case 0:
			cx++
		case 1:
			cx--
		case 2:
			cy++
		case 3:
			cy--
		}
	}
}

func farFromGenerators(g *Grid, x, y int, minDist int) bool {
	for _, gen := range g.Generators {
		if euclid(x, y, int(gen.X), int(gen.Y)) < float64(minDist) {
			return false
		}
	}
	return true
}

// placeHoles drops 5-10 holes at walkable tiles with generator distance >=
// 5, up to 100 attempts per hole.
func placeHoles(g *Grid) {
	count := 5 + rand.Intn(6) // 5..10
	for i := 0; i < count; i++ {
		for attempt := 0; attempt < 100; attempt++ {
			x := rand.Intn(g.Width)
			y := rand.Intn(g.Height)
			if g.At(x, y) == Walkable && farFromGenerators(g, x, y, 5) {
				g.Set(x, y, Hole)
				break
			}
		}
	}
}

// convertMirrors converts each wall to a mirror with probability 0.3.
func convertMirrors(g *Grid) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.At(x, y) == Wall && rand.Float64() < 0.3 {
				g.Set(x, y, Mirror)
			}
		}
	}
}

// placeSpawns computes the four corner spawn points and forces a 5-tile
// clearing to walkable around each, overwriting any prior content.
func placeSpawns(g *Grid) {
	m := spawnMargin
	w := g.Width - 1
	g.SpawnPoints = [4]Coord{
		{X: int16(m), Y: int16(m)},
		{X: int16(w - m), Y: int16(m)},
		{X: int16(m), Y: int16(w - m)},
		{X: int16(w - m), Y: int16(w - m)},
	}

	for _, sp := range g.SpawnPoints {
		sx, sy := int(sp.X), int(sp.Y)
		for dx := -5; dx <= 5; dx++ {
			for dy := -5; dy <= 5; dy++ {
				x, y := sx+dx, sy+dy
				if g.inBounds(x, y) {
					g.Set(x, y, Walkable)
				}
			}
		}
	}

	rebuildGenerators(g)
}

// rebuildGenerators re-derives the generator list after spawn clearings may
// have overwritten some generator tiles with walkable ground.
func rebuildGenerators(g *Grid) {
	gens := make([]Coord, 0, len(g.Generators))
	for _, gen := range g.Generators {
		if g.AtCoord(gen) == Generator {
			gens = append(gens, gen)
		}
	}
	g.Generators = gens
}

func euclid(x1, y1, x2, y2 int) float64 {
	dx := float64(x1 - x2)
	dy := float64(y1 - y2)
	return math.Sqrt(dx*dx + dy*dy)
}

// spawnsConnected flood-fills from the first spawn over {walkable,
// generator} and verifies the other three spawns are reached.
func spawnsConnected(g *Grid) bool {
	visited := make([]bool, g.Width*g.Height)
	start := g.SpawnPoints[0]
	stack := []Coord{start}
	visited[int(start.Y)*g.Width+int(start.X)] = true

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		neighbors := [4]Coord{
			{X: c.X + 1, Y: c.Y}, {X: c.X - 1, Y: c.Y},
			{X: c.X, Y: c.Y + 1}, {X: c.X, Y: c.Y - 1},
		}
		for _, n := range neighbors {
			if !g.inBounds(int(n.X), int(n.Y)) {
				continue
			}
			idx := int(n.Y)*g.Width + int(n.X)
			if visited[idx] {
				continue
			}
			kind := g.AtCoord(n)
			if kind != Walkable && kind != Generator {
				continue
			}
			visited[idx] = true
			stack = append(stack, n)
		}
	}

	for _, sp := range g.SpawnPoints[1:] {
		if !visited[int(sp.Y)*g.Width+int(sp.X)] {
			return false
		}
	}
	return true
}
