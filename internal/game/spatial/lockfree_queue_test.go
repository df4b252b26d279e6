package spatial

import (
	"sync"
	"testing"
)

func TestLockFreeQueuePushPopOrder(t *testing.T) {
	q := NewLockFreeQueue[int](8)
	for i := 0; i < 5; i++ {
		if !q.TryPush(i) {
			t.Fatalf("push %d failed unexpectedly", i)
		}
	}
	for i := 0; i < 5; i++ {
		v, ok := q.TryPop()
		if !ok || v != i {
			t.Fatalf("pop %d = (%v, %v), want (%d, true)", i, v, ok, i)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Error("expected empty queue to report false")
	}
}

func TestLockFreeQueueRoundsCapacityToPowerOfTwo(t *testing.T) {
	q := NewLockFreeQueue[int](10)
	if q.Cap() != 16 {
		t.Errorf("Cap() = %d, want 16", q.Cap())
	}
}

func TestLockFreeQueueTryPushFailsWhenFull(t *testing.T) {
	q := NewLockFreeQueue[int](4)
	for i := 0; i < 4; i++ {
		if !q.TryPush(i) {
			t.Fatalf("push %d should have succeeded", i)
		}
	}
	if q.TryPush(99) {
		t.Error("push into a full queue should fail")
	}
	if !q.IsFull() {
		t.Error("IsFull() should report true")
	}
}

func TestLockFreeQueueDrain(t *testing.T) {
	q := NewLockFreeQueue[int](8)
	for i := 0; i < 3; i++ {
		q.TryPush(i)
	}
	got := q.Drain(10)
	if len(got) != 3 {
		t.Fatalf("drained %d items, want 3", len(got))
	}
	if !q.IsEmpty() {
		t.Error("expected the queue to be empty after a full drain")
	}
}

func TestLockFreeQueueConcurrentProducers(t *testing.T) {
	q := NewLockFreeQueue[int](1024)
	var wg sync.WaitGroup
	const producers = 8
	const perProducer = 50

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Errorf("Len() = %d, want %d", q.Len(), producers*perProducer)
	}
}

func TestLockFreeQueueBlockingPushPop(t *testing.T) {
	q := NewLockFreeQueue[string](4)
	q.Push("a")
	q.Push("b")

	if v := q.Pop(); v != "a" {
		t.Fatalf("first pop = %v, want a", v)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}
