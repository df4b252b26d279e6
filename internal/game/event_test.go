package game

import "testing"

func TestNewEventEncodesPayload(t *testing.T) {
	ev := NewEvent(EventBeamFired, 7, "p1", map[string]int{"x": 3})
	if ev.Type != EventBeamFired || ev.Tick != 7 || ev.PlayerID != "p1" {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
	if string(ev.Payload) != `{"x":3}` {
		t.Errorf("payload = %s, want {\"x\":3}", ev.Payload)
	}
	if ev.Timestamp == 0 {
		t.Error("expected a non-zero timestamp")
	}
}

func TestNewEventFallsBackToNullPayloadOnMarshalFailure(t *testing.T) {
	// channels can't be marshaled to JSON
	ev := NewEvent(EventStateDelta, 1, "", make(chan int))
	if string(ev.Payload) != "null" {
		t.Errorf("payload = %s, want null on marshal failure", ev.Payload)
	}
}
