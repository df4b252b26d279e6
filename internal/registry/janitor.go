package registry

import (
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"territory-arena/internal/game"
)

// Janitor periodically force-finishes matches that have gone stale:
// waiting rooms idle for longer than the waiting threshold, and matches
// that have been playing for longer than the playing threshold, counted
// from when the game started rather than from the last activity.
type Janitor struct {
	registry      *Registry
	sweepInterval time.Duration
	staleWaiting  time.Duration
	stalePlaying  time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewJanitor constructs a janitor with the given sweep cadence and
// staleness thresholds (in minutes, matching config.RegistryLimits).
func NewJanitor(reg *Registry, sweepIntervalSec, staleWaitingMinutes, stalePlayingMinutes int) *Janitor {
	return &Janitor{
		registry:      reg,
		sweepInterval: time.Duration(sweepIntervalSec) * time.Second,
		staleWaiting:  time.Duration(staleWaitingMinutes) * time.Minute,
		stalePlaying:  time.Duration(stalePlayingMinutes) * time.Minute,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Run loops until Stop is called, sweeping for stale matches on each tick.
func (j *Janitor) Run() {
	defer close(j.done)

	ticker := time.NewTicker(j.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			n := j.sweep()
			if n > 0 {
				log.Printf("janitor: reaped %d stale match(es)", n)
			}
		}
	}
}

// Stop requests shutdown and blocks until the loop has exited.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}

// sweep implements cleanup_stale_matches(): returns the number of matches
// force-finished this pass.
func (j *Janitor) sweep() int {
	now := time.Now().UnixMilli()
	count := 0

	for _, m := range j.registry.All() {
		switch m.Status() {
		case game.StatusWaiting:
			idle := time.Duration(now-m.LastActivityMs()) * time.Millisecond
			if idle >= j.staleWaiting {
				log.Printf("janitor: match %s waiting idle since %s, reaping", m.ID(), humanize.Time(time.UnixMilli(m.LastActivityMs())))
				j.registry.Remove(m.ID())
				count++
			}
		case game.StatusPlaying:
			// "playing older than 60 minutes" bounds total time in the
			// status, not idle-since-last-tick: a ticking match (every
			// playing match, every 50ms) never goes idle by that measure,
			// so a solo match with no time limit would otherwise never be
			// reaped. Age from when StartGame last succeeded instead.
			age := time.Duration(now-m.PlayingSinceMs()) * time.Millisecond
			if age >= j.stalePlaying {
				log.Printf("janitor: match %s playing since %s, reaping", m.ID(), humanize.Time(time.UnixMilli(m.PlayingSinceMs())))
				j.registry.Remove(m.ID())
				count++
			}
		}
	}

	return count
}
