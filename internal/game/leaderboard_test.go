package game

import "testing"

func TestLeaderboardRecomputeRanksByOwnedTiles(t *testing.T) {
	lb := NewLeaderboard()
	players := map[string]*Player{
		"a": {UserID: "a"},
		"b": {UserID: "b"},
		"c": {UserID: "c"},
	}
	own := Ownership{
		{X: 0, Y: 0}: "a",
		{X: 1, Y: 0}: "a",
		{X: 2, Y: 0}: "a",
		{X: 0, Y: 1}: "b",
		{X: 1, Y: 1}: "b",
	}

	lb.Recompute(players, own)

	if lb.Rank("a") != 1 {
		t.Errorf("rank(a) = %d, want 1 (3 tiles owned)", lb.Rank("a"))
	}
	if lb.Rank("b") != 2 {
		t.Errorf("rank(b) = %d, want 2 (2 tiles owned)", lb.Rank("b"))
	}
	if lb.Rank("c") != 3 {
		t.Errorf("rank(c) = %d, want 3 (0 tiles owned)", lb.Rank("c"))
	}
}

func TestLeaderboardTopReturnsHighestFirst(t *testing.T) {
	lb := NewLeaderboard()
	players := map[string]*Player{"a": {UserID: "a"}, "b": {UserID: "b"}}
	own := Ownership{{X: 0, Y: 0}: "b", {X: 1, Y: 0}: "b", {X: 2, Y: 0}: "b"}
	lb.Recompute(players, own)

	top := lb.Top(1)
	if len(top) != 1 || top[0].Key != "b" {
		t.Errorf("Top(1) = %v, want [b]", top)
	}
}

func TestLeaderboardRemove(t *testing.T) {
	lb := NewLeaderboard()
	players := map[string]*Player{"a": {UserID: "a"}}
	lb.Recompute(players, Ownership{})
	lb.Remove("a")
	if lb.Rank("a") != 0 {
		t.Errorf("rank after removal = %d, want 0", lb.Rank("a"))
	}
}
