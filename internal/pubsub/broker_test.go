package pubsub

import (
	"testing"
	"time"

	"territory-arena/internal/game"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe("m1")
	defer unsub()

	ev := game.NewEvent(game.EventStateDelta, 1, "", map[string]int{"x": 1})
	b.Publish("m1", ev)

	select {
	case got := <-ch:
		if got.Type != game.EventStateDelta {
			t.Errorf("got type %v, want state_delta", got.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestPublishIsolatesTopics(t *testing.T) {
	b := NewBroker()
	chA, unsubA := b.Subscribe("matchA")
	defer unsubA()
	chB, unsubB := b.Subscribe("matchB")
	defer unsubB()

	b.Publish("matchA", game.NewEvent(game.EventGameStarted, 0, "", nil))

	select {
	case <-chA:
	case <-time.After(time.Second):
		t.Fatal("matchA subscriber should have received the event")
	}

	select {
	case <-chB:
		t.Fatal("matchB subscriber should not receive matchA's event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishToUnknownTopicIsNoop(t *testing.T) {
	b := NewBroker()
	// No subscribers exist for "ghost"; Publish must not panic or block.
	b.Publish("ghost", game.NewEvent(game.EventGameEnded, 0, "", nil))
}

func TestUnsubscribeStopsDeliveryAndCleansUpEmptyTopic(t *testing.T) {
	b := NewBroker()
	_, unsub := b.Subscribe("m1")
	if b.SubscriberCount("m1") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.SubscriberCount("m1"))
	}

	unsub()
	if b.SubscriberCount("m1") != 0 {
		t.Errorf("expected 0 subscribers after unsubscribe, got %d", b.SubscriberCount("m1"))
	}
}

func TestPublishDropsForSlowSubscriberWithoutBlocking(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe("m1")
	defer unsub()

	// Fill the subscriber's buffer without draining it.
	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish("m1", game.NewEvent(game.EventStateDelta, uint64(i), "", nil))
	}

	if len(ch) != subscriberBufferSize {
		t.Errorf("expected the channel buffer to be full at %d, got %d", subscriberBufferSize, len(ch))
	}
}

func TestMultipleSubscribersEachReceiveEvent(t *testing.T) {
	b := NewBroker()
	ch1, unsub1 := b.Subscribe("m1")
	defer unsub1()
	ch2, unsub2 := b.Subscribe("m1")
	defer unsub2()

	b.Publish("m1", game.NewEvent(game.EventPlayerJoined, 0, "alice", nil))

	for _, ch := range []<-chan game.Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("each subscriber should independently receive the event")
		}
	}
}
