package game

import "math"

// StackCounts mirrors a player's three stackable upgrade counters.
type StackCounts struct {
	Speed  int `json:"speed"`
	Radius int `json:"radius"`
	Energy int `json:"energy"`
}

// FlagSet mirrors a player's three one-shot upgrade flags.
type FlagSet struct {
	Multishot bool `json:"multishot"`
	Piercing  bool `json:"piercing"`
	BeamSpeed bool `json:"beam_speed"`
}

// PlayerDelta is the per-tick subset of player fields the state_delta event
// republishes - position, resources, and upgrade state, but not identity.
type PlayerDelta struct {
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Energy     float64     `json:"energy"`
	Coins      float64     `json:"coins"`
	MaxEnergy  float64     `json:"max_energy"`
	GlowRadius float64     `json:"glow_radius"`
	Stacks     StackCounts `json:"stacks"`
	Flags      FlagSet     `json:"flags"`
}

// BuildPlayerDelta snapshots p's tick-varying fields, rounding coordinates
// to 2 decimal places as required by the wire protocol.
func BuildPlayerDelta(p *Player) PlayerDelta {
	return PlayerDelta{
		X:          round2(p.X),
		Y:          round2(p.Y),
		Energy:     p.Energy,
		Coins:      p.Coins,
		MaxEnergy:  p.MaxEnergy(),
		GlowRadius: p.GlowRadius(),
		Stacks:     StackCounts{Speed: p.SpeedStacks, Radius: p.RadiusStacks, Energy: p.EnergyStacks},
		Flags:      FlagSet{Multishot: p.HasMultishot, Piercing: p.HasPiercing, BeamSpeed: p.HasBeamSpeed},
	}
}

// PlayerWire is a player's full record as serialized over the wire -
// player_joined events and the join/full-state payload, per spec §6.1 -
// with position rounded to the same 2-decimal precision every other wire
// coordinate uses (BuildPlayerDelta, BuildBeamWire). Player itself stays
// unrounded in memory; only this wire view snapshots and rounds it.
type PlayerWire struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Color  string `json:"color"`

	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`

	Energy float64 `json:"energy"`
	Coins  float64 `json:"coins"`

	MaxEnergy  float64 `json:"max_energy"`
	GlowRadius float64 `json:"glow_radius"`

	Stacks StackCounts `json:"stacks"`
	Flags  FlagSet     `json:"flags"`
}

// BuildPlayerWire snapshots p's full record for the wire, rounding
// coordinates to 2 decimal places.
func BuildPlayerWire(p *Player) PlayerWire {
	return PlayerWire{
		UserID:     p.UserID,
		Name:       p.Name,
		Avatar:     p.Avatar,
		Color:      p.Color,
		X:          round2(p.X),
		Y:          round2(p.Y),
		VX:         round2(p.VX),
		VY:         round2(p.VY),
		Energy:     p.Energy,
		Coins:      p.Coins,
		MaxEnergy:  p.MaxEnergy(),
		GlowRadius: p.GlowRadius(),
		Stacks:     StackCounts{Speed: p.SpeedStacks, Radius: p.RadiusStacks, Energy: p.EnergyStacks},
		Flags:      FlagSet{Multishot: p.HasMultishot, Piercing: p.HasPiercing, BeamSpeed: p.HasBeamSpeed},
	}
}

// BeamWire is a beam as serialized over the wire, with rounded coordinates
// and direction.
type BeamWire struct {
	ID          string  `json:"id"`
	OwnerUserID string  `json:"owner_user_id"`
	Color       string  `json:"color"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	DirX        float64 `json:"dir_x"`
	DirY        float64 `json:"dir_y"`
	Speed       float64 `json:"speed"`
}

func BuildBeamWire(b *Beam) BeamWire {
	return BeamWire{
		ID:          b.ID,
		OwnerUserID: b.OwnerUserID,
		Color:       b.Color,
		X:           round2(b.X),
		Y:           round2(b.Y),
		DirX:        round3(b.DirX),
		DirY:        round3(b.DirY),
		Speed:       b.Speed,
	}
}

// DeltaPayload is the state_delta event body: only what changed this tick,
// plus tick/timestamp.
type DeltaPayload struct {
	Tick              uint64                 `json:"tick"`
	ServerTimestampMs int64                  `json:"server_timestamp_ms"`
	TimeRemainingMs   *int64                 `json:"time_remaining_ms,omitempty"`
	Players           map[string]PlayerDelta `json:"players"`
	Beams             []BeamWire             `json:"beams"`
	Tiles             map[string]string      `json:"tiles"`
}

// FullStatePayload is the join-response body: complete match state.
type FullStatePayload struct {
	MatchID           string                `json:"match_id"`
	JoinCode          string                `json:"join_code"`
	Status            string                `json:"status"`
	HostID            string                `json:"host_id"`
	IsSolo            bool                  `json:"is_solo"`
	IsPublic          bool                  `json:"is_public"`
	GridSize          int                   `json:"grid_size"`
	MapTiles          map[string]string     `json:"map_tiles"`
	TileOwners        map[string]string     `json:"tile_owners"`
	Generators        []string              `json:"generators"`
	SpawnPoints       []string              `json:"spawn_points"`
	Players           map[string]PlayerWire `json:"players"`
	Beams             []BeamWire            `json:"beams"`
	CoinDrops         []*CoinDrop           `json:"coin_drops"`
	Tick              uint64                `json:"tick"`
	ServerTimestampMs int64                 `json:"server_timestamp_ms"`
	TimeRemainingMs   *int64                `json:"time_remaining_ms,omitempty"`
}

// BuildFullState serializes the complete match state for a join response,
// per spec §6.1: map tiles and tile owners keyed "x,y", generator and
// spawn-point lists stringified the same way.
func BuildFullState(matchID, joinCode, status, hostID string, isSolo, isPublic bool, grid *Grid, ownership Ownership, players map[string]*Player, beams []*Beam, drops []*CoinDrop, tick uint64, nowMs int64, timeRemainingMs *int64) FullStatePayload {
	mapTiles := make(map[string]string, grid.Width*grid.Height)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := Coord{X: int16(x), Y: int16(y)}
			mapTiles[EncodeCoordKey(c)] = grid.AtCoord(c).String()
		}
	}

	tileOwners := make(map[string]string, len(ownership))
	for c, owner := range ownership {
		if owner == "" {
			continue
		}
		tileOwners[EncodeCoordKey(c)] = owner
	}

	generators := make([]string, len(grid.Generators))
	for i, g := range grid.Generators {
		generators[i] = EncodeCoordKey(g)
	}
	spawns := make([]string, len(grid.SpawnPoints))
	for i, s := range grid.SpawnPoints {
		spawns[i] = EncodeCoordKey(s)
	}

	beamsWire := make([]BeamWire, len(beams))
	for i, b := range beams {
		beamsWire[i] = BuildBeamWire(b)
	}

	playersWire := make(map[string]PlayerWire, len(players))
	for uid, p := range players {
		playersWire[uid] = BuildPlayerWire(p)
	}

	return FullStatePayload{
		MatchID:           matchID,
		JoinCode:          joinCode,
		Status:            status,
		HostID:            hostID,
		IsSolo:            isSolo,
		IsPublic:          isPublic,
		GridSize:          grid.Width,
		MapTiles:          mapTiles,
		TileOwners:        tileOwners,
		Generators:        generators,
		SpawnPoints:       spawns,
		Players:           playersWire,
		Beams:             beamsWire,
		CoinDrops:         drops,
		Tick:              tick,
		ServerTimestampMs: nowMs,
		TimeRemainingMs:   timeRemainingMs,
	}
}

// TileDiff computes the tiles whose owner changed between a pre-tick
// snapshot and the current ownership map, keyed "x,y" -> new owner.
func TileDiff(before, after Ownership) map[string]string {
	changed := make(map[string]string)
	for c, owner := range after {
		if before[c] != owner && owner != "" {
			changed[EncodeCoordKey(c)] = owner
		}
	}
	return changed
}

// CloneOwnership returns a shallow copy, used to snapshot ownership before a
// tick's captures so TileDiff can report only what changed.
func CloneOwnership(o Ownership) Ownership {
	clone := make(Ownership, len(o))
	for c, owner := range o {
		clone[c] = owner
	}
	return clone
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
