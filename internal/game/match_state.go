package game

import (
	"errors"
	"math"
	"time"
)

// MatchStatus is the three-state match lifecycle.
type MatchStatus string

const (
	StatusWaiting  MatchStatus = "waiting"
	StatusPlaying  MatchStatus = "playing"
	StatusFinished MatchStatus = "finished"
)

const (
	// TickRate is the simulation frequency in Hz.
	TickRate        = 20
	TickInterval    = 50 * time.Millisecond
	tickIntervalMs  = int64(TickInterval / time.Millisecond)
	MinPlayersMulti = 2
	MinPlayersSolo  = 1

	// DefaultMaxPlayers and DefaultMatchDurationMs are the fallback
	// values used when a match is built without an explicit MatchConfig
	// (e.g. in tests). The spec leaves the concrete duration unspecified
	// (only that time_remaining_ms counts down by tick_interval); ten
	// minutes is the value adopted here (see SPEC_FULL.md open questions).
	DefaultMaxPlayers      = 4
	DefaultMatchDurationMs = int64(10 * 60 * 1000)

	// shootEnergyCost is the per-shot-request energy cost; debited
	// unconditionally before the muzzle check, per spec §9.
	shootEnergyCost = 10.0
)

// MatchConfig tunes the per-match knobs the registry hands to every actor
// it creates - grid size, roster cap, and countdown length - mirroring
// the teacher's EngineConfig-passed-to-constructor idiom instead of
// baking these into package constants.
type MatchConfig struct {
	GridSize        int
	MaxPlayers      int
	MatchDurationMs int64
}

// DefaultMatchConfig returns the values matches used before MatchConfig
// existed, for callers (tests, mostly) that don't need to tune them.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		GridSize:        DefaultGridSize,
		MaxPlayers:      DefaultMaxPlayers,
		MatchDurationMs: DefaultMatchDurationMs,
	}
}

var (
	ErrMatchNotFound      = errors.New("match_not_found")
	ErrNotInGame          = errors.New("not_in_game")
	ErrMatchFull          = errors.New("match_full")
	ErrGameInProgress     = errors.New("game_in_progress")
	ErrNotHost            = errors.New("not_host")
	ErrGameAlreadyStarted = errors.New("game_already_started")
	ErrNotEnoughPlayers   = errors.New("not_enough_players")
	ErrGameNotPlaying     = errors.New("game_not_playing")
)

// MatchState is the root simulation state for one match: grid, ownership,
// players, beams, coin drops, and lifecycle bookkeeping. Every mutation
// happens through its methods, called only from the owning Match actor's
// single goroutine - no field here is ever locked.
type MatchState struct {
	ID       string
	JoinCode string
	Status   MatchStatus
	HostID   string
	IsSolo   bool
	IsPublic bool

	Grid      *Grid
	Ownership Ownership
	Players   map[string]*Player
	joinOrder []string

	Beams     []*Beam
	CoinDrops []*CoinDrop

	Tick            uint64
	TimeRemainingMs *int64

	leaderboard     *Leaderboard
	totalCapturable int
	cfg             MatchConfig
}

// NewMatchState constructs a waiting match around a freshly generated grid.
func NewMatchState(id, joinCode, hostID string, isSolo, isPublic bool, grid *Grid, cfg MatchConfig) *MatchState {
	return &MatchState{
		ID:              id,
		JoinCode:        joinCode,
		Status:          StatusWaiting,
		HostID:          hostID,
		IsSolo:          isSolo,
		IsPublic:        isPublic,
		Grid:            grid,
		Ownership:       NewOwnership(grid),
		Players:         make(map[string]*Player),
		leaderboard:     NewLeaderboard(),
		totalCapturable: len(grid.CapturableTiles()),
		cfg:             cfg,
	}
}

// orderedPlayers returns players in join order, for deterministic
// iteration (glow-capture tie resolution, income application).
func (ms *MatchState) orderedPlayers() []*Player {
	out := make([]*Player, 0, len(ms.joinOrder))
	for _, uid := range ms.joinOrder {
		if p := ms.Players[uid]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Join adds userID to the match, or - if already present - returns the
// existing player with alreadyJoined=true (idempotent per spec R1).
func (ms *MatchState) Join(userID, name, avatar string) (player *Player, alreadyJoined bool, err error) {
	if p, ok := ms.Players[userID]; ok {
		return p, true, nil
	}
	if ms.Status != StatusWaiting {
		return nil, false, ErrGameInProgress
	}
	if len(ms.Players) >= ms.cfg.MaxPlayers {
		return nil, false, ErrMatchFull
	}

	idx := len(ms.joinOrder)
	p := NewPlayer(userID, name, avatar, idx, ms.Grid)
	ms.Players[userID] = p
	ms.joinOrder = append(ms.joinOrder, userID)
	return p, false, nil
}

// Leave removes a player. No-op if the player isn't present.
func (ms *MatchState) Leave(userID string) {
	if _, ok := ms.Players[userID]; !ok {
		return
	}
	delete(ms.Players, userID)
	for i, id := range ms.joinOrder {
		if id == userID {
			ms.joinOrder = append(ms.joinOrder[:i], ms.joinOrder[i+1:]...)
			break
		}
	}
	ms.leaderboard.Remove(userID)
}

// EmptyAndWaiting reports whether the match has no players and never
// started - the condition under which the actor should self-terminate.
func (ms *MatchState) EmptyAndWaiting() bool {
	return ms.Status == StatusWaiting && len(ms.Players) == 0
}

// StartGame transitions waiting -> playing, only for the host, only with
// enough players.
func (ms *MatchState) StartGame(requesterID string) error {
	if ms.Status != StatusWaiting {
		return ErrGameAlreadyStarted
	}
	if requesterID != ms.HostID {
		return ErrNotHost
	}
	min := MinPlayersMulti
	if ms.IsSolo {
		min = MinPlayersSolo
	}
	if len(ms.Players) < min {
		return ErrNotEnoughPlayers
	}

	ms.Status = StatusPlaying
	if ms.IsSolo {
		ms.TimeRemainingMs = nil
	} else {
		t := ms.cfg.MatchDurationMs
		ms.TimeRemainingMs = &t
	}
	return nil
}

// SetInput overwrites a player's live input vector. Silently dropped if the
// player isn't present.
func (ms *MatchState) SetInput(userID string, w, a, s, d bool) {
	if p := ms.Players[userID]; p != nil {
		p.SetInput(w, a, s, d)
	}
}

// Shoot validates and spawns beam(s) for a shoot request. Energy is debited
// unconditionally before the muzzle check (spec §9); a muzzle-blocked or
// insufficient-energy request silently produces no beam.
func (ms *MatchState) Shoot(userID string, dirX, dirY float64, nextBeamID func() string) []*Beam {
	if ms.Status != StatusPlaying {
		return nil
	}
	p := ms.Players[userID]
	if p == nil {
		return nil
	}
	if p.Energy < shootEnergyCost {
		return nil
	}
	p.Energy -= shootEnergyCost

	beams := ShootBeams(nextBeamID, userID, p.Color, p.X, p.Y, dirX, dirY, ms.Grid, p.HasMultishot, p.HasPiercing, p.HasBeamSpeed)
	ms.Beams = append(ms.Beams, beams...)
	return beams
}

// BuyPowerup resolves a purchase synchronously against the player record.
func (ms *MatchState) BuyPowerup(userID string, t PowerupType) error {
	if ms.Status != StatusPlaying {
		return ErrGameNotPlaying
	}
	p := ms.Players[userID]
	if p == nil {
		return ErrNotInGame
	}
	return BuyPowerup(p, t)
}

// StepEvent is one event to publish to the match topic, produced by a Step
// call in the fixed order specified by §4.7.
type StepEvent struct {
	Type     EventType
	PlayerID string
	Payload  interface{}
}

// FinishResult is the outcome of a completed match, handed to the
// repository and broadcast as game_ended.
type FinishResult struct {
	WinnerID *string
	Scores   map[string]float64
}

// Step runs one full 50ms tick: movement, glow capture, beam advance,
// economy, coin-drop lifecycle, pickups, then a tile-ownership diff -
// exactly the ordering in spec §4.7. Returns the events to publish, in
// order, and a FinishResult if this tick ended the match.
func (ms *MatchState) Step(dt float64, rng RandSource, nextBeamID, nextDropID func() string) ([]StepEvent, *FinishResult) {
	if ms.Status != StatusPlaying {
		return nil, nil
	}

	ms.Tick++

	if ms.TimeRemainingMs != nil {
		*ms.TimeRemainingMs -= tickIntervalMs
		if *ms.TimeRemainingMs < 0 {
			*ms.TimeRemainingMs = 0
		}
		if !ms.IsSolo && *ms.TimeRemainingMs <= 0 {
			fr := ms.finish()
			ev := StepEvent{Type: EventGameEnded, Payload: gameEndedPayload(fr, ms.Players)}
			return []StepEvent{ev}, &fr
		}
	}

	before := CloneOwnership(ms.Ownership)
	players := ms.orderedPlayers()

	for _, p := range players {
		p.Move(dt, ms.Grid)
	}

	ApplyGlowCapture(players, ms.Grid, ms.Ownership)

	var events []StepEvent
	alive := ms.Beams[:0]
	for _, b := range ms.Beams {
		captured := b.Update(dt, ms.Grid)
		for _, c := range captured {
			ms.Ownership.Capture(c, b.OwnerUserID)
		}
		if b.Active {
			alive = append(alive, b)
		} else {
			events = append(events, StepEvent{Type: EventBeamEnded, Payload: map[string]string{"id": b.ID}})
		}
	}
	ms.Beams = alive

	ApplyIncome(players, ms.Ownership, ms.Grid, dt)

	uncollected := 0
	for _, d := range ms.CoinDrops {
		if !d.Collected {
			uncollected++
		}
	}
	if drop := MaybeSpawnCoinDrop(rng, nextDropID, ms.Tick, TickRate, uncollected, ms.Grid.Width); drop != nil {
		ms.CoinDrops = append(ms.CoinDrops, drop)
		events = append(events, StepEvent{Type: EventCoinTelegraph, Payload: drop})
	}

	var justSpawned []*CoinDrop
	for _, d := range ms.CoinDrops {
		if !d.Spawned && ms.Tick >= d.SpawnAtTick {
			justSpawned = append(justSpawned, d)
		}
	}
	UpdateTelegraphs(ms.CoinDrops, ms.Tick)
	for _, d := range justSpawned {
		events = append(events, StepEvent{Type: EventCoinSpawned, Payload: d})
	}

	for _, pu := range ResolvePickups(ms.CoinDrops, players) {
		events = append(events, StepEvent{
			Type:     EventCoinCollected,
			PlayerID: pu.UserID,
			Payload:  map[string]interface{}{"id": pu.DropID, "user_id": pu.UserID, "amount": pu.Awarded},
		})
	}
	ms.pruneCollectedDrops()

	ms.leaderboard.Recompute(ms.Players, ms.Ownership)

	delta := DeltaPayload{
		Tick:              ms.Tick,
		ServerTimestampMs: time.Now().UnixMilli(),
		TimeRemainingMs:   ms.TimeRemainingMs,
		Players:           ms.playerDeltas(),
		Beams:             ms.beamWires(),
		Tiles:             TileDiff(before, ms.Ownership),
	}
	events = append(events, StepEvent{Type: EventStateDelta, Payload: delta})

	return events, nil
}

func (ms *MatchState) pruneCollectedDrops() {
	kept := ms.CoinDrops[:0]
	for _, d := range ms.CoinDrops {
		if !d.Collected {
			kept = append(kept, d)
		}
	}
	ms.CoinDrops = kept
}

func (ms *MatchState) playerDeltas() map[string]PlayerDelta {
	out := make(map[string]PlayerDelta, len(ms.Players))
	for uid, p := range ms.Players {
		out[uid] = BuildPlayerDelta(p)
	}
	return out
}

func (ms *MatchState) beamWires() []BeamWire {
	out := make([]BeamWire, len(ms.Beams))
	for i, b := range ms.Beams {
		out[i] = BuildBeamWire(b)
	}
	return out
}

// finish transitions to finished and computes final scores: 100 * owned /
// total_capturable, rounded to 1 decimal; winner is the argmax.
func (ms *MatchState) finish() FinishResult {
	ms.Status = StatusFinished

	scores := make(map[string]float64, len(ms.Players))
	var winner *string
	best := -1.0

	for _, uid := range ms.joinOrder {
		if _, ok := ms.Players[uid]; !ok {
			continue
		}
		owned := ms.Ownership.CountOwned(uid)
		score := 0.0
		if ms.totalCapturable > 0 {
			score = math.Round(100*float64(owned)/float64(ms.totalCapturable)*10) / 10
		}
		scores[uid] = score
		if score > best {
			best = score
			w := uid
			winner = &w
		}
	}
	if len(scores) == 0 {
		winner = nil
	}
	return FinishResult{WinnerID: winner, Scores: scores}
}

// ForceFinish is invoked by the janitor for stale matches: it skips the
// normal tick path and computes final scores immediately.
func (ms *MatchState) ForceFinish() FinishResult {
	return ms.finish()
}

func gameEndedPayload(fr FinishResult, players map[string]*Player) map[string]interface{} {
	playersWire := make(map[string]PlayerWire, len(players))
	for uid, p := range players {
		playersWire[uid] = BuildPlayerWire(p)
	}
	return map[string]interface{}{
		"winner_id": fr.WinnerID,
		"scores":    fr.Scores,
		"players":   playersWire,
	}
}
