package game

import "math"

const (
	beamSpeedSlow  = 15.0
	beamSpeedFast  = 30.0
	beamMaxLifeSec = 10.0
	beamMaxSteps   = 500 // DDA safety cap per segment
	multishotSpan  = math.Pi / 12
)

// Beam is a moving ray fired by a player that captures tiles along its path
// and terminates on walls/mirrors/holes/the map boundary.
type Beam struct {
	ID           string  `json:"id"`
	OwnerUserID  string  `json:"owner_user_id"`
	Color        string  `json:"color"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	DirX         float64 `json:"dir_x"`
	DirY         float64 `json:"dir_y"`
	Speed        float64 `json:"speed"`
	TimeAlive    float64 `json:"-"`
	Piercing     bool    `json:"-"`
	PiercingUsed bool    `json:"piercing_used"`
	Active       bool    `json:"active"`
}

// NewBeam validates the muzzle tile and constructs a single beam. It returns
// ok=false (and a nil beam) when the muzzle sample lands on a blocking,
// non-mirror tile, per spec §4.2: a muzzle against wall/hole/boundary
// produces no beam.
func NewBeam(id, ownerID, color string, px, py, dx, dy float64, grid *Grid, boosted bool) (*Beam, bool) {
	mag := math.Hypot(dx, dy)
	if mag < 1e-3 {
		dx, dy = 1, 0
	} else {
		dx, dy = dx/mag, dy/mag
	}

	mx, my := px+0.6*dx, py+0.6*dy
	muzzle := coordAt(mx, my)
	switch grid.AtCoord(muzzle) {
	case Wall, Hole, Boundary:
		return nil, false
	}

	speed := beamSpeedSlow
	if boosted {
		speed = beamSpeedFast
	}
	return &Beam{
		ID:          id,
		OwnerUserID: ownerID,
		Color:       color,
		X:           px,
		Y:           py,
		DirX:        dx,
		DirY:        dy,
		Speed:       speed,
		Active:      true,
	}, true
}

// ShootBeams produces one beam, or three (multishot) at θ, θ+π/12, θ−π/12,
// each independently muzzle-validated; failed muzzle checks are discarded.
func ShootBeams(nextID func() string, ownerID, color string, px, py, dx, dy float64, grid *Grid, multishot, piercing, boosted bool) []*Beam {
	if !multishot {
		b, ok := NewBeam(nextID(), ownerID, color, px, py, dx, dy, grid, boosted)
		if !ok {
			return nil
		}
		b.Piercing = piercing
		return []*Beam{b}
	}

	theta := math.Atan2(dy, dx)
	angles := [3]float64{theta, theta + multishotSpan, theta - multishotSpan}
	beams := make([]*Beam, 0, 3)
	for _, a := range angles {
		adx, ady := math.Cos(a), math.Sin(a)
		b, ok := NewBeam(nextID(), ownerID, color, px, py, adx, ady, grid, boosted)
		if !ok {
			continue
		}
		b.Piercing = piercing
		beams = append(beams, b)
	}
	return beams
}

// Update advances the beam by dt, traversing every tile its segment enters
// in DDA order, capturing walkable/generator tiles and resolving the first
// wall/mirror/hole/boundary encountered. It returns the tiles captured this
// step, in traversal order.
func (b *Beam) Update(dt float64, grid *Grid) []Coord {
	if !b.Active {
		return nil
	}
	if b.TimeAlive+dt >= beamMaxLifeSec {
		b.Active = false
		return nil
	}

	ox, oy := b.X, b.Y
	nx := b.X + b.DirX*b.Speed*dt
	ny := b.Y + b.DirY*b.Speed*dt

	tiles := traverseDDA(ox, oy, nx, ny)
	captured := make([]Coord, 0, len(tiles))

	for i, c := range tiles {
		kind := grid.AtCoord(c)
		if i == 0 && kind == Wall && b.PiercingUsed {
			continue // still inside the wall this beam pierced last step
		}
		switch kind {
		case Walkable, Generator:
			captured = append(captured, c)

		case Wall:
			if b.Piercing && !b.PiercingUsed {
				b.PiercingUsed = true
				continue
			}
			b.stopAtEdge(ox, oy, c)
			b.TimeAlive += dt
			return captured

		case Mirror:
			b.reflect(ox, oy, c, grid)
			b.TimeAlive += dt
			return captured

		case Hole, Boundary:
			b.Active = false
			b.TimeAlive += dt
			return captured
		}
	}

	b.X, b.Y = nx, ny
	b.TimeAlive += dt
	return captured
}

// stopAtEdge computes the ray's entry face into the blocking tile and parks
// the beam 1e-2 inside it (toward the origin), per spec §4.2 step 5.
func (b *Beam) stopAtEdge(ox, oy float64, tile Coord) {
	_, ex, ey, _, ok := tileEdgeHit(ox, oy, b.DirX, b.DirY, int(tile.X), int(tile.Y))
	if !ok {
		ex, ey = float64(tile.X), float64(tile.Y)
	}
	b.X = ex - b.DirX*1e-2
	b.Y = ey - b.DirY*1e-2
	b.Active = false
}

// reflect computes the exact entry face/point into a mirror tile and
// negates the perpendicular direction component. If the re-entry position
// lands inside another blocking tile, the beam terminates at the entry
// point instead of continuing reflected.
func (b *Beam) reflect(ox, oy float64, tile Coord, grid *Grid) {
	face, ex, ey, _, ok := tileEdgeHit(ox, oy, b.DirX, b.DirY, int(tile.X), int(tile.Y))
	if !ok {
		b.Active = false
		return
	}

	newDX, newDY := b.DirX, b.DirY
	if face == faceLeft || face == faceRight {
		newDX = -newDX
	} else {
		newDY = -newDY
	}

	candX, candY := ex+newDX*0.1, ey+newDY*0.1
	if grid.AtCoord(coordAt(candX, candY)).Blocking() {
		b.X, b.Y = ex, ey
		b.Active = false
		return
	}

	b.X, b.Y = candX, candY
	b.DirX, b.DirY = newDX, newDY
}

// coordAt maps a continuous position to the tile it lies within (tile
// centers at integers, spans [x-0.5, x+0.5]).
func coordAt(x, y float64) Coord {
	return Coord{X: int16(math.Floor(x + 0.5)), Y: int16(math.Floor(y + 0.5))}
}

// traverseDDA enumerates, in order, every tile the segment (x0,y0)->(x1,y1)
// enters. tMaxX/tMaxY/tDeltaX/tDeltaY track the DDA state; axis-aligned
// motion is handled via +Inf deltas so the other axis never advances. A
// simultaneous X/Y crossing steps both axes at once (the "cross both
// simultaneously" branch), matching a muzzle fired exactly along a tile
// diagonal.
func traverseDDA(x0, y0, x1, y1 float64) []Coord {
	ux0, uy0 := x0+0.5, y0+0.5
	ux1, uy1 := x1+0.5, y1+0.5
	dx := ux1 - ux0
	dy := uy1 - uy0

	tx := int(math.Floor(ux0))
	ty := int(math.Floor(uy0))
	endTX := int(math.Floor(ux1))
	endTY := int(math.Floor(uy1))

	var stepX, stepY int
	tMaxX, tMaxY := math.Inf(1), math.Inf(1)
	tDeltaX, tDeltaY := math.Inf(1), math.Inf(1)

	switch {
	case dx > 0:
		stepX = 1
		tDeltaX = 1 / dx
		tMaxX = (float64(tx+1) - ux0) / dx
	case dx < 0:
		stepX = -1
		tDeltaX = 1 / -dx
		tMaxX = (ux0 - float64(tx)) / -dx
	}
	switch {
	case dy > 0:
		stepY = 1
		tDeltaY = 1 / dy
		tMaxY = (float64(ty+1) - uy0) / dy
	case dy < 0:
		stepY = -1
		tDeltaY = 1 / -dy
		tMaxY = (uy0 - float64(ty)) / -dy
	}

	coords := make([]Coord, 0, 8)
	coords = append(coords, Coord{X: int16(tx), Y: int16(ty)})

	for steps := 0; steps < beamMaxSteps; steps++ {
		if tx == endTX && ty == endTY {
			break
		}
		switch {
		case tMaxX < tMaxY:
			tx += stepX
			tMaxX += tDeltaX
		case tMaxY < tMaxX:
			ty += stepY
			tMaxY += tDeltaY
		default:
			tx += stepX
			ty += stepY
			tMaxX += tDeltaX
			tMaxY += tDeltaY
		}
		coords = append(coords, Coord{X: int16(tx), Y: int16(ty)})
	}

	return coords
}

const (
	faceLeft   = 'L'
	faceRight  = 'R'
	faceTop    = 'T'
	faceBottom = 'B'
)

// tileEdgeHit finds the smallest positive-t intersection of the ray
// (ox,oy)+(dx,dy)*t with the four edges of tile (tx,ty), restricted to the
// portion of each edge that bounds the tile rectangle.
func tileEdgeHit(ox, oy, dx, dy float64, tx, ty int) (face byte, ex, ey, t float64, ok bool) {
	left := float64(tx) - 0.5
	right := float64(tx) + 0.5
	top := float64(ty) - 0.5
	bottom := float64(ty) + 0.5

	best := math.Inf(1)
	const eps = 1e-9

	consider := func(tCand float64, f byte, x, y float64) {
		if tCand < -eps {
			return
		}
		if tCand < best {
			best = tCand
			face = f
			ex, ey = x, y
			ok = true
		}
	}

	if dx != 0 {
		tL := (left - ox) / dx
		yL := oy + dy*tL
		if yL >= top-eps && yL <= bottom+eps {
			consider(tL, faceLeft, left, yL)
		}
		tR := (right - ox) / dx
		yR := oy + dy*tR
		if yR >= top-eps && yR <= bottom+eps {
			consider(tR, faceRight, right, yR)
		}
	}
	if dy != 0 {
		tT := (top - oy) / dy
		xT := ox + dx*tT
		if xT >= left-eps && xT <= right+eps {
			consider(tT, faceTop, xT, top)
		}
		tB := (bottom - oy) / dy
		xB := ox + dx*tB
		if xB >= left-eps && xB <= right+eps {
			consider(tB, faceBottom, xB, bottom)
		}
	}

	t = best
	return
}
