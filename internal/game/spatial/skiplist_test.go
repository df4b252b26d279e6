package spatial

import "testing"

func TestSkipListInsertAndRank(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("a", 30)
	sl.Insert("b", 50)
	sl.Insert("c", 10)

	if sl.GetRank("b") != 1 {
		t.Errorf("rank(b) = %d, want 1 (highest score)", sl.GetRank("b"))
	}
	if sl.GetRank("a") != 2 {
		t.Errorf("rank(a) = %d, want 2", sl.GetRank("a"))
	}
	if sl.GetRank("c") != 3 {
		t.Errorf("rank(c) = %d, want 3 (lowest score)", sl.GetRank("c"))
	}
	if sl.GetRank("ghost") != 0 {
		t.Errorf("rank of unknown key = %d, want 0", sl.GetRank("ghost"))
	}
}

func TestSkipListInsertUpdatesExistingKey(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("a", 10)
	sl.Insert("b", 20)
	sl.Insert("a", 30) // a should now outrank b

	if sl.GetRank("a") != 1 {
		t.Errorf("rank(a) after update = %d, want 1", sl.GetRank("a"))
	}
	if sl.Length() != 2 {
		t.Errorf("length = %d, want 2 (update must not duplicate the key)", sl.Length())
	}
	score, ok := sl.GetScore("a")
	if !ok || score != 30 {
		t.Errorf("GetScore(a) = (%v, %v), want (30, true)", score, ok)
	}
}

func TestSkipListRemove(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("a", 10)
	if !sl.Remove("a") {
		t.Fatal("expected Remove to report true for an existing key")
	}
	if sl.Remove("a") {
		t.Error("expected a second Remove of the same key to report false")
	}
	if sl.Length() != 0 {
		t.Errorf("length after remove = %d, want 0", sl.Length())
	}
}

func TestSkipListGetRange(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("a", 10)
	sl.Insert("b", 40)
	sl.Insert("c", 30)
	sl.Insert("d", 20)

	top2 := sl.GetRange(1, 2)
	if len(top2) != 2 || top2[0].Key != "b" || top2[1].Key != "c" {
		t.Errorf("GetRange(1,2) = %v, want [b c]", top2)
	}
}

func TestSkipListGetByRank(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("a", 10)
	sl.Insert("b", 40)

	entry := sl.GetByRank(1)
	if entry == nil || entry.Key != "b" {
		t.Errorf("GetByRank(1) = %v, want b", entry)
	}
	if sl.GetByRank(99) != nil {
		t.Error("GetByRank beyond length should return nil")
	}
}

func TestSkipListClear(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("a", 10)
	sl.Insert("b", 20)
	sl.Clear()
	if sl.Length() != 0 {
		t.Errorf("length after clear = %d, want 0", sl.Length())
	}
	if sl.GetRank("a") != 0 {
		t.Error("expected no entries to remain after Clear")
	}
}

func TestSkipListForEachVisitsInRankOrder(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("a", 10)
	sl.Insert("b", 30)
	sl.Insert("c", 20)

	var keys []string
	sl.ForEach(func(rank int, e SkipListEntry) bool {
		keys = append(keys, e.Key)
		return true
	})
	want := []string{"b", "c", "a"}
	if len(keys) != len(want) {
		t.Fatalf("visited %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
