// Package registry owns the set of live match actors: starting them,
// looking them up by id, and reaping them once their actor goroutine exits.
package registry

import (
	"errors"
	"log"
	"path/filepath"
	"sync"

	"territory-arena/internal/game"
)

var ErrTooManyMatches = errors.New("too_many_matches")

// Registry is the process-wide table of running matches. Unlike MatchState,
// this map IS guarded by a mutex - it's shared across every HTTP/WS request
// goroutine, not owned by a single actor.
type Registry struct {
	mu          sync.RWMutex
	matches     map[string]*game.Match
	maxCount    int
	matchCfg    game.MatchConfig
	eventLogDir string
}

// New constructs an empty registry. maxCount bounds concurrent matches
// (DoS protection); zero means unbounded. matchCfg is handed to every
// match actor this registry creates. eventLogDir, if non-empty, is where
// each match's per-match event log is written; empty disables it.
func New(maxCount int, matchCfg game.MatchConfig, eventLogDir string) *Registry {
	return &Registry{
		matches:     make(map[string]*game.Match),
		maxCount:    maxCount,
		matchCfg:    matchCfg,
		eventLogDir: eventLogDir,
	}
}

// Create builds a new match actor, starts its goroutine, registers it, and
// arranges for it to be removed once it terminates.
func (r *Registry) Create(id, joinCode, hostID string, isSolo, isPublic bool, pub game.Publisher, repo game.Repository) (*game.Match, error) {
	r.mu.Lock()
	if r.maxCount > 0 && len(r.matches) >= r.maxCount {
		r.mu.Unlock()
		return nil, ErrTooManyMatches
	}
	m := game.NewMatch(id, joinCode, hostID, isSolo, isPublic, r.matchCfg, pub, repo)
	r.matches[id] = m
	r.mu.Unlock()

	if r.eventLogDir != "" {
		path := filepath.Join(r.eventLogDir, id+".jsonl")
		if err := m.StartEventLog(path); err != nil {
			log.Printf("registry: event log disabled for match %s: %v", id, err)
		}
	}

	go m.Run()
	go r.reapWhenDone(m)

	return m, nil
}

func (r *Registry) reapWhenDone(m *game.Match) {
	<-m.Done()
	r.mu.Lock()
	delete(r.matches, m.ID())
	r.mu.Unlock()
}

// Lookup returns the match for id, or nil if it doesn't exist.
func (r *Registry) Lookup(id string) *game.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matches[id]
}

// JoinCodeInUse reports whether a join code is currently in use by any
// non-finished match - callers use this to retry join-code generation.
func (r *Registry) JoinCodeInUse(joinCode string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.matches {
		if m.Status() != game.StatusFinished && m.JoinCode() == joinCode {
			return true
		}
	}
	return false
}

// Count returns the number of currently tracked matches.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

// All returns a snapshot slice of every tracked match, for the janitor
// sweep and for listing joinable matches.
func (r *Registry) All() []*game.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*game.Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	return out
}

// ListAvailable returns public, joinable multiplayer matches: waiting,
// public, non-solo, with at least one player already in - mirroring the
// list_available() operation the lobby REST layer exposes.
func (r *Registry) ListAvailable() []*game.Match {
	out := make([]*game.Match, 0)
	for _, m := range r.All() {
		if m.Status() == game.StatusWaiting && m.IsPublic() && !m.IsSolo() && m.PlayerCount() >= 1 {
			out = append(out, m)
		}
	}
	return out
}

// Remove force-stops and unregisters a match immediately (used by the
// janitor for matches that are stale beyond the normal lifecycle).
func (r *Registry) Remove(id string) {
	r.mu.RLock()
	m, ok := r.matches[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	m.ForceFinish()
}
