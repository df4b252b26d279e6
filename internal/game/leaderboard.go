package game

import "territory-arena/internal/game/spatial"

// Leaderboard tracks live tile-ownership counts per player, backed by the
// same concurrent skip list the teacher used for a kills/deaths ranking -
// repurposed here for rank queries over territory instead of combat score.
type Leaderboard struct {
	scores *spatial.SkipList
}

// NewLeaderboard returns an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{scores: spatial.NewSkipList()}
}

// Recompute rebuilds every player's score from the current ownership map.
// Called once per tick after captures are resolved; cheap relative to the
// simulation step since it's O(capturable tiles) plus one skip-list insert
// (a scan of at most n entries) per player.
func (l *Leaderboard) Recompute(players map[string]*Player, ownership Ownership) {
	counts := make(map[string]int, len(players))
	for _, owner := range ownership {
		if owner != "" {
			counts[owner]++
		}
	}
	for uid := range players {
		l.scores.Insert(uid, float64(counts[uid]))
	}
}

// Rank returns a player's 1-indexed rank (1 = most tiles owned), or 0 if
// the player isn't tracked.
func (l *Leaderboard) Rank(userID string) int {
	return l.scores.GetRank(userID)
}

// Top returns the top n entries, highest tile count first.
func (l *Leaderboard) Top(n int) []spatial.SkipListEntry {
	return l.scores.GetRange(1, n)
}

// Remove drops a player from the leaderboard (on leave).
func (l *Leaderboard) Remove(userID string) {
	l.scores.Remove(userID)
}
