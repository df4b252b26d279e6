package game

import (
	"encoding/json"
	"time"
)

// EventType is the closed set of events a match actor broadcasts to its
// topic, in the order listed in the channel protocol.
type EventType string

const (
	EventPlayerJoined      EventType = "player_joined"
	EventPlayerLeft        EventType = "player_left"
	EventGameStarted       EventType = "game_started"
	EventStateDelta        EventType = "state_delta"
	EventBeamFired         EventType = "beam_fired"
	EventBeamEnded         EventType = "beam_ended"
	EventCoinTelegraph     EventType = "coin_telegraph"
	EventCoinSpawned       EventType = "coin_spawned"
	EventCoinCollected     EventType = "coin_collected"
	EventPowerupPurchased  EventType = "powerup_purchased"
	EventGameEnded         EventType = "game_ended"
)

// Event is one entry in a match's ordered, replayable event stream. Sequence
// is assigned by the EventLog on emit; PlayerID is empty for match-wide
// events (state_delta, game_started, game_ended).
type Event struct {
	Sequence  uint64          `json:"sequence"`
	Type      EventType       `json:"type"`
	Tick      uint64          `json:"tick"`
	PlayerID  string          `json:"player_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp_ms"`
}

// NewEvent encodes payload to JSON and stamps the current wall-clock time.
// A marshal failure yields an event with a null payload rather than a
// panic - the event is still emitted so sequence numbers stay contiguous.
func NewEvent(eventType EventType, tick uint64, playerID string, payload interface{}) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("null")
	}
	return Event{
		Type:      eventType,
		Tick:      tick,
		PlayerID:  playerID,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}
}
