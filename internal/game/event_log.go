package game

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Sizing here is scoped to one match, not a whole server: a match caps out
// at DefaultMaxPlayers participants, so the burst this log ever has to
// absorb is "every player shoots, buys, and moves in the same tick" - a
// small, bounded number of events per 50ms tick, not an arbitrary stream
// from an unbounded number of connections.
const (
	MatchEventBufferSize  = 512                   // ring buffer slots for one match's event stream
	MatchEventRatePerSec  = 2000                   // generous multiple of a full-roster tick's event count
	PlayerEventRatePerSec = 40                     // a lone misbehaving client can't flood the match log
	FlushBatchSize        = 32                     // events per disk write
	FlushInterval         = 250 * time.Millisecond // matches don't need sub-100ms durability
	PlayerLimiterIdleTTL  = 2 * time.Minute         // matches linger at most 60s after finishing
)

// EventLog is a per-match, bounded, rate-limited record of everything the
// match actor broadcast, written out as newline-delimited JSON for replay
// or post-match review. It backs off under load rather than stall the tick
// loop: it drops the oldest buffered entries and keeps counting what it
// dropped (the actor's mailbox, by contrast, drops the new command).
type EventLog struct {
	// Circular buffer, single producer (the match actor) / single consumer
	// (the writer goroutine) - no reader/writer contention expected at this
	// scale, but atomics keep Emit callable without taking a lock.
	buffer    [MatchEventBufferSize]Event
	writeHead uint64
	readHead  uint64

	matchLimiter   *rate.Limiter
	playerLimiters sync.Map // map[string]*playerLimiterEntry, one per seat at the table

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64
	totalCount   uint64
}

// playerLimiterEntry is one player's share of the event budget.
type playerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewEventLog constructs an EventLog for one match. It does nothing until
// Start is called.
func NewEventLog() *EventLog {
	return &EventLog{
		matchLimiter: rate.NewLimiter(MatchEventRatePerSec, MatchEventRatePerSec/10),
		stopChan:     make(chan struct{}),
	}
}

// Start opens filePath (if non-empty) and begins the async writer and
// idle-limiter-cleanup goroutines. Calling Start twice is a no-op.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}
	el.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.limiterCleanupLoop()
	return nil
}

// Stop drains the writer and closes the file. Safe to call more than once.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit rate-limits and buffers one event. It returns false if the event was
// dropped because the match's overall event budget or a single player's
// share of it was exceeded. A full ring buffer does not drop the new event:
// the oldest pending entry is evicted (and counted as dropped) and Emit
// returns true. The match actor never blocks on this call.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.matchLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	if event.PlayerID != "" {
		if !el.playerLimiter(event.PlayerID).Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	head := atomic.AddUint64(&el.writeHead, 1)
	tail := atomic.LoadUint64(&el.readHead)
	if head-tail >= MatchEventBufferSize {
		atomic.AddUint64(&el.readHead, 1)
		atomic.AddUint64(&el.droppedCount, 1)
	}

	event.Sequence = head
	el.buffer[head%MatchEventBufferSize] = event

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple builds and emits an event in one call.
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, playerID string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, playerID, payload))
}

// playerLimiter returns the limiter for playerID, creating it on first use.
func (el *EventLog) playerLimiter(playerID string) *rate.Limiter {
	if entry, ok := el.playerLimiters.Load(playerID); ok {
		e := entry.(*playerLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}

	entry := &playerLimiterEntry{
		limiter:  rate.NewLimiter(PlayerEventRatePerSec, PlayerEventRatePerSec/10),
		lastUsed: time.Now(),
	}
	actual, _ := el.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*playerLimiterEntry).limiter
}

// writerLoop batches buffered events to disk on a timer and on shutdown.
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, FlushBatchSize)
	for {
		select {
		case <-el.stopChan:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
			return
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// limiterCleanupLoop evicts per-player limiters for players who left (or
// whose match finished) a while ago, so the map doesn't grow across the
// registry's lifetime of many short-lived matches.
func (el *EventLog) limiterCleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(PlayerLimiterIdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.evictIdlePlayerLimiters()
		}
	}
}

func (el *EventLog) evictIdlePlayerLimiters() {
	cutoff := time.Now().Add(-PlayerLimiterIdleTTL)
	el.playerLimiters.Range(func(key, value interface{}) bool {
		if value.(*playerLimiterEntry).lastUsed.Before(cutoff) {
			el.playerLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch drains up to FlushBatchSize pending events from the buffer.
func (el *EventLog) collectBatch(batch []Event) []Event {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	for i := tail; i < head && len(batch) < FlushBatchSize; i++ {
		batch = append(batch, el.buffer[i%MatchEventBufferSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&el.readHead, uint64(len(batch)))
	}
	return batch
}

// flushBatch appends newline-delimited JSON records to the match's log file.
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}
	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.file.Write(data)
		el.file.Write([]byte("\n"))
	}
}

// GetStats reports this match's event-log counters. Nothing feeds them to
// the /metrics handler.
func (el *EventLog) GetStats() map[string]interface{} {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)
	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": head - tail,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of events dropped to rate limiting or
// buffer backpressure.
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the number of events accepted since construction.
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
