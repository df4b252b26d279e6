package game

import "math"

// ApplyGlowCapture passively captures tiles within each player's glow radius.
// Players are visited in the order given (insertion order over the match's
// player map), so ties within one tick resolve to whichever player is
// visited last - a documented, test-observable ordering choice.
func ApplyGlowCapture(players []*Player, grid *Grid, ownership Ownership) {
	for _, p := range players {
		radius := p.GlowRadius()
		reach := int(math.Ceil(radius))
		px, py := int(math.Floor(p.X)), int(math.Floor(p.Y))

		for dy := -reach; dy <= reach; dy++ {
			for dx := -reach; dx <= reach; dx++ {
				if math.Sqrt(float64(dx*dx+dy*dy)) > radius {
					continue
				}
				c := Coord{X: int16(px + dx), Y: int16(py + dy)}
				ownership.Capture(c, p.UserID)
			}
		}
	}
}
