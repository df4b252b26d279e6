package game

import (
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"territory-arena/internal/game/spatial"
)

const (
	mailboxCapacity        = 1024
	finishedLingerDuration = 60 * time.Second
)

// Repository is the narrow persistence surface a Match actor needs. The
// concrete implementation (internal/repository) lives outside this package;
// the match only ever sees this interface, matching spec §5's framing of
// the store as an external collaborator.
type Repository interface {
	UpdateStatus(matchID string, status MatchStatus) error
	FinishMatch(matchID string, result FinishResult, finalState FullStatePayload) error
}

// Publisher fans a match's events out to its topic subscribers. Must not
// block the caller - a slow subscriber is the publisher's problem, never
// the actor's (spec §5).
type Publisher interface {
	Publish(matchID string, ev Event)
}

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdStartGame
	cmdInput
	cmdShoot
	cmdBuyPowerup
	cmdForceFinish
)

type joinResult struct {
	State         FullStatePayload
	AlreadyJoined bool
	Err           error
}

type command struct {
	kind       commandKind
	userID     string
	name       string
	avatar     string
	w, a, s, d bool
	dirX, dirY float64
	powerup    PowerupType
	reply      chan error
	joinReply  chan joinResult
}

// Match is the per-match actor: a single goroutine owning a *MatchState
// exclusively, fed by a lock-free mailbox and a 50ms tick timer. This is
// the concurrency model spec §5 calls for - no locks ever guard state;
// the actor's single-threaded discipline is the only mutual exclusion.
type Match struct {
	id    string
	state *MatchState

	mailbox *spatial.LockFreeQueue[command]
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	stopOnce sync.Once

	events *EventLog
	pub    Publisher
	repo   Repository
	rng    *rand.Rand

	statusAtomic   atomic.Value // string(MatchStatus)
	playerCount    atomic.Int64
	lastActivityMs atomic.Int64
	playingSinceMs atomic.Int64 // 0 until StartGame succeeds; unix millis after
	createdAtMs    int64
}

// NewMatch generates a fresh grid and constructs a waiting match actor.
// Call Run in its own goroutine to start the actor; it does nothing until
// then (server.go's lifecycle-split testability convention).
func NewMatch(id, joinCode, hostID string, isSolo, isPublic bool, cfg MatchConfig, pub Publisher, repo Repository) *Match {
	gridSize := cfg.GridSize
	if gridSize <= 0 {
		gridSize = DefaultGridSize
	}
	grid := GenerateGrid(gridSize)
	state := NewMatchState(id, joinCode, hostID, isSolo, isPublic, grid, cfg)

	m := &Match{
		id:          id,
		state:       state,
		mailbox:     spatial.NewLockFreeQueue[command](mailboxCapacity),
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		events:      NewEventLog(),
		pub:         pub,
		repo:        repo,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		createdAtMs: time.Now().UnixMilli(),
	}
	m.statusAtomic.Store(string(StatusWaiting))
	m.lastActivityMs.Store(m.createdAtMs)
	return m
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// JoinCode, HostID, IsSolo and IsPublic are immutable after construction,
// so reading them needs no synchronization.
func (m *Match) JoinCode() string { return m.state.JoinCode }
func (m *Match) HostID() string   { return m.state.HostID }
func (m *Match) IsSolo() bool     { return m.state.IsSolo }
func (m *Match) IsPublic() bool   { return m.state.IsPublic }

// Status is safe for concurrent reads from the registry/janitor; it is
// updated only by the actor goroutine via an atomic store.
func (m *Match) Status() MatchStatus {
	v, _ := m.statusAtomic.Load().(string)
	return MatchStatus(v)
}

// PlayerCount is safe for concurrent reads, used by list_available.
func (m *Match) PlayerCount() int { return int(m.playerCount.Load()) }

// LastActivityMs is the unix-millis timestamp of the last processed command
// or tick, used by the janitor's staleness sweep.
func (m *Match) LastActivityMs() int64 { return m.lastActivityMs.Load() }

// CreatedAtMs is the unix-millis timestamp the match was constructed.
func (m *Match) CreatedAtMs() int64 { return m.createdAtMs }

// PlayingSinceMs is the unix-millis timestamp StartGame last succeeded, or
// 0 if the match has never started. Unlike LastActivityMs (refreshed every
// 50ms tick while playing), this never advances once set, so the janitor
// can bound total time spent in the playing status - the case that matters
// is exactly a solo match with no time limit that someone walked away from
// and left ticking indefinitely.
func (m *Match) PlayingSinceMs() int64 { return m.playingSinceMs.Load() }

// Done closes once the actor goroutine has exited, letting the registry
// reap the entry without polling.
func (m *Match) Done() <-chan struct{} { return m.done }

// ForceFinish is used by the janitor to end a stale match from outside the
// actor goroutine. It enqueues a synthetic stop request and waits for the
// actor to process it, so MatchState is still only ever touched by its own
// goroutine.
func (m *Match) ForceFinish() {
	reply := make(chan error, 1)
	m.enqueue(command{kind: cmdForceFinish, reply: reply})
	select {
	case <-reply:
	case <-m.done:
		// actor already exited on its own (e.g. waiting room emptied)
	}
}

// Run is the actor's event loop. It suspends only on the mailbox wake
// channel or the tick timer, exactly the two suspension points spec §5
// allows.
func (m *Match) Run() {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	lastTick := time.Now()

	log.Printf("match %s: actor started", m.id)
	for {
		select {
		case <-m.stop:
			m.events.Stop()
			log.Printf("match %s: actor stopped", m.id)
			close(m.done)
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			m.runTick(dt)
		case <-m.wake:
			m.drainMailbox()
		}
	}
}

// Stop requests a polite shutdown and blocks until the actor goroutine has
// exited. Safe to call more than once.
func (m *Match) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

func (m *Match) enqueue(cmd command) {
	if !m.mailbox.TryPush(cmd) {
		return // mailbox saturated: fire-and-forget inputs are simply dropped
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Join enqueues a join request and blocks for the reply, matching §6.1's
// "after successful join, client receives full state" contract.
func (m *Match) Join(userID, name, avatar string) (FullStatePayload, bool, error) {
	reply := make(chan joinResult, 1)
	m.enqueue(command{kind: cmdJoin, userID: userID, name: name, avatar: avatar, joinReply: reply})
	res := <-reply
	return res.State, res.AlreadyJoined, res.Err
}

// Leave is fire-and-forget.
func (m *Match) Leave(userID string) {
	m.enqueue(command{kind: cmdLeave, userID: userID})
}

// StartGame is reply-bearing.
func (m *Match) StartGame(userID string) error {
	reply := make(chan error, 1)
	m.enqueue(command{kind: cmdStartGame, userID: userID, reply: reply})
	return <-reply
}

// SetInput is fire-and-forget; the mailbox ordering guarantee means the
// last-enqueued vector before a tick is what drives that tick's movement.
func (m *Match) SetInput(userID string, w, a, s, d bool) {
	m.enqueue(command{kind: cmdInput, userID: userID, w: w, a: a, s: s, d: d})
}

// Shoot is fire-and-forget.
func (m *Match) Shoot(userID string, dirX, dirY float64) {
	m.enqueue(command{kind: cmdShoot, userID: userID, dirX: dirX, dirY: dirY})
}

// BuyPowerup is reply-bearing.
func (m *Match) BuyPowerup(userID string, t PowerupType) error {
	reply := make(chan error, 1)
	m.enqueue(command{kind: cmdBuyPowerup, userID: userID, powerup: t, reply: reply})
	return <-reply
}

func (m *Match) drainMailbox() {
	for {
		cmd, ok := m.mailbox.TryPop()
		if !ok {
			return
		}
		m.handle(cmd)
	}
}

func (m *Match) touch() {
	m.lastActivityMs.Store(time.Now().UnixMilli())
	m.statusAtomic.Store(string(m.state.Status))
	m.playerCount.Store(int64(len(m.state.Players)))
}

func (m *Match) handle(cmd command) {
	defer m.touch()

	switch cmd.kind {
	case cmdJoin:
		p, already, err := m.state.Join(cmd.userID, cmd.name, cmd.avatar)
		if err != nil {
			cmd.joinReply <- joinResult{Err: err}
			return
		}
		if !already {
			m.emit(StepEvent{Type: EventPlayerJoined, PlayerID: cmd.userID, Payload: BuildPlayerWire(p)})
		}
		cmd.joinReply <- joinResult{State: m.fullState(), AlreadyJoined: already}

	case cmdLeave:
		m.state.Leave(cmd.userID)
		m.emit(StepEvent{Type: EventPlayerLeft, PlayerID: cmd.userID, Payload: map[string]string{"user_id": cmd.userID}})
		if m.state.EmptyAndWaiting() {
			m.finishAndStop(nil)
		}

	case cmdStartGame:
		err := m.state.StartGame(cmd.userID)
		if err == nil {
			m.playingSinceMs.Store(time.Now().UnixMilli())
			if m.repo != nil {
				if rerr := m.repo.UpdateStatus(m.id, StatusPlaying); rerr != nil {
					log.Printf("match %s: persist status=playing failed: %v", m.id, rerr)
				}
			}
			m.emit(StepEvent{Type: EventGameStarted, Payload: map[string]interface{}{"time_remaining_ms": m.state.TimeRemainingMs}})
		}
		cmd.reply <- err

	case cmdInput:
		m.state.SetInput(cmd.userID, cmd.w, cmd.a, cmd.s, cmd.d)

	case cmdShoot:
		for _, b := range m.state.Shoot(cmd.userID, cmd.dirX, cmd.dirY, m.nextBeamID) {
			m.emit(StepEvent{Type: EventBeamFired, PlayerID: cmd.userID, Payload: BuildBeamWire(b)})
		}

	case cmdBuyPowerup:
		err := m.state.BuyPowerup(cmd.userID, cmd.powerup)
		if err == nil {
			m.emit(StepEvent{Type: EventPowerupPurchased, PlayerID: cmd.userID, Payload: map[string]string{"user_id": cmd.userID, "type": string(cmd.powerup)}})
		}
		cmd.reply <- err

	case cmdForceFinish:
		if m.state.Status != StatusFinished {
			m.finishAndStop(nil)
		}
		cmd.reply <- nil
	}
}

func (m *Match) runTick(dt float64) {
	if m.state.Status != StatusPlaying {
		return
	}
	defer m.touch()

	events, finishResult := m.state.Step(dt, m.rng, m.nextBeamID, m.nextDropID)
	if finishResult != nil {
		// persist status=finished before the game_ended event goes out
		m.finishAndStop(finishResult)
	}
	for _, ev := range events {
		m.emit(ev)
	}
}

// finishAndStop persists the final state (status=finished before the
// game_over broadcast, per spec §5's ordering requirement), then schedules
// actor termination. A match that never started (finishes because the
// waiting room emptied) terminates immediately instead of lingering 60s.
func (m *Match) finishAndStop(fr *FinishResult) {
	var result FinishResult
	if fr != nil {
		result = *fr
	} else {
		result = m.state.ForceFinish()
	}

	full := m.fullState()
	if m.repo != nil {
		if err := m.repo.FinishMatch(m.id, result, full); err != nil {
			log.Printf("match %s: persist finish failed: %v", m.id, err)
		}
	}
	m.touch()

	neverStarted := m.state.Tick == 0
	if fr == nil && !neverStarted {
		// Step() already emits game_ended itself when it ends a match
		// naturally; a forced finish (stale janitor sweep) has no such
		// event yet, so emit it here. A match that never started (the
		// waiting room simply emptied) has no one left to hear it.
		m.emit(StepEvent{Type: EventGameEnded, Payload: gameEndedPayload(result, m.state.Players)})
	}

	linger := finishedLingerDuration
	if neverStarted {
		linger = 0
	}
	time.AfterFunc(linger, m.Stop)
}

func (m *Match) emit(ev StepEvent) {
	event := NewEvent(ev.Type, m.state.Tick, ev.PlayerID, ev.Payload)
	m.events.Emit(event)
	if m.pub != nil {
		m.pub.Publish(m.id, event)
	}
}

func (m *Match) fullState() FullStatePayload {
	return BuildFullState(
		m.id, m.state.JoinCode, string(m.state.Status), m.state.HostID, m.state.IsSolo, m.state.IsPublic,
		m.state.Grid, m.state.Ownership, m.state.Players, m.state.Beams, m.state.CoinDrops,
		m.state.Tick, time.Now().UnixMilli(), m.state.TimeRemainingMs,
	)
}

func (m *Match) nextBeamID() string { return uuid.NewString() }
func (m *Match) nextDropID() string { return uuid.NewString() }

// StartEventLog begins writing this match's event stream to filePath.
func (m *Match) StartEventLog(filePath string) error {
	return m.events.Start(filePath)
}

// StopEventLog flushes and closes the event log.
func (m *Match) StopEventLog() {
	m.events.Stop()
}
