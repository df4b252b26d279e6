package game

import "math"

const (
	incomeBase          = 1.0
	incomePerGenerator  = 3.0
	coinDropSoftCap     = 10
	coinSpawnProbAt1Hz  = 0.05
	coinPickupRadius    = 1.0
	coinSpawnMarginLo   = 10
	coinSpawnMarginHi   = 11 // W - 11
)

// CoinDropKind is the closed set of coin drop tiers.
type CoinDropKind string

const (
	CoinBronze CoinDropKind = "bronze"
	CoinSilver CoinDropKind = "silver"
	CoinGold   CoinDropKind = "gold"
)

var coinDropValues = map[CoinDropKind]int{
	CoinBronze: 10,
	CoinSilver: 25,
	CoinGold:   50,
}

var coinTelegraphSeconds = map[CoinDropKind]float64{
	CoinBronze: 3,
	CoinSilver: 5,
	CoinGold:   7,
}

// CoinDrop is a collectible spawned at a uniformly random position inside
// the spawn margins (the tile kind under it is not checked), with a
// telegraph period before it becomes pickup-eligible.
type CoinDrop struct {
	ID          string       `json:"id"`
	Kind        CoinDropKind `json:"kind"`
	Value       int          `json:"value"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	SpawnAtTick uint64       `json:"spawn_at_tick"`
	Spawned     bool         `json:"spawned"`
	Collected   bool         `json:"collected"`
}

// PickupEvent describes one player's share of a collected coin drop.
type PickupEvent struct {
	DropID   string
	UserID   string
	Awarded  float64
}

// RandSource is the subset of *rand.Rand the economy needs, so callers can
// supply a seeded source for deterministic tests.
type RandSource interface {
	Float64() float64
}

// ApplyIncome credits each player passive income plus 3 coins/sec per
// generator tile they own, scaled by dt, then clamps to the 300 coin cap.
func ApplyIncome(players []*Player, ownership Ownership, grid *Grid, dt float64) {
	generatorsOwned := make(map[string]int, len(players))
	for c, owner := range ownership {
		if owner == "" {
			continue
		}
		if grid.AtCoord(c) == Generator {
			generatorsOwned[owner]++
		}
	}

	for _, p := range players {
		income := (incomeBase + incomePerGenerator*float64(generatorsOwned[p.UserID])) * dt
		p.AddCoins(income)
	}
}

// MaybeSpawnCoinDrop rolls the per-tick spawn chance and, on success (and
// while fewer than the soft cap of drops exist), returns a new telegraphed
// drop. Returns nil when no drop spawns this tick.
func MaybeSpawnCoinDrop(rng RandSource, nextID func() string, currentTick uint64, ticksPerSecond int, existingCount int, gridWidth int) *CoinDrop {
	if existingCount >= coinDropSoftCap {
		return nil
	}
	prob := coinSpawnProbAt1Hz / float64(ticksPerSecond)
	if rng.Float64() >= prob {
		return nil
	}

	kind := rollCoinKind(rng)
	lo := coinSpawnMarginLo
	hi := gridWidth - coinSpawnMarginHi
	if hi < lo {
		hi = lo
	}
	x := float64(lo) + rng.Float64()*float64(hi-lo)
	y := float64(lo) + rng.Float64()*float64(hi-lo)

	telegraphTicks := uint64(coinTelegraphSeconds[kind] * float64(ticksPerSecond))
	return &CoinDrop{
		ID:          nextID(),
		Kind:        kind,
		Value:       coinDropValues[kind],
		X:           x,
		Y:           y,
		SpawnAtTick: currentTick + telegraphTicks,
	}
}

func rollCoinKind(rng RandSource) CoinDropKind {
	r := rng.Float64()
	switch {
	case r < 0.60:
		return CoinBronze
	case r < 0.90:
		return CoinSilver
	default:
		return CoinGold
	}
}

// UpdateTelegraphs flips drops whose spawn tick has arrived to Spawned.
func UpdateTelegraphs(drops []*CoinDrop, currentTick uint64) {
	for _, d := range drops {
		if !d.Spawned && currentTick >= d.SpawnAtTick {
			d.Spawned = true
		}
	}
}

// ResolvePickups collects every spawned, uncollected drop within pickup
// radius of one or more players, splitting the value equally among
// qualifying players, and marks the drop collected.
func ResolvePickups(drops []*CoinDrop, players []*Player) []PickupEvent {
	var events []PickupEvent

	for _, d := range drops {
		if !d.Spawned || d.Collected {
			continue
		}

		var qualifying []*Player
		for _, p := range players {
			dx := p.X - d.X
			dy := p.Y - d.Y
			if math.Sqrt(dx*dx+dy*dy) <= coinPickupRadius {
				qualifying = append(qualifying, p)
			}
		}
		if len(qualifying) == 0 {
			continue
		}

		share := float64(d.Value) / float64(len(qualifying))
		for _, p := range qualifying {
			p.AddCoins(share)
			events = append(events, PickupEvent{DropID: d.ID, UserID: p.UserID, Awarded: share})
		}
		d.Collected = true
	}

	return events
}
