// Package repository persists match lifecycle records to SQLite: match
// metadata, final scores, and per-player color/score rows. It is the
// store spec §6.2 describes the match actor as an external collaborator
// of - the game package never imports this one, only the narrow
// game.Repository interface it satisfies.
package repository

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"territory-arena/internal/game"
)

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const joinCodeLength = 6

// Store is the SQLite-backed match repository.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dsn and
// ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		host_id TEXT NOT NULL,
		status TEXT NOT NULL,
		is_public INTEGER NOT NULL,
		is_solo INTEGER NOT NULL,
		winner_id TEXT,
		final_state TEXT,
		inserted_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_matches_code_status ON matches(code, status);

	CREATE TABLE IF NOT EXISTS match_players (
		match_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		color TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		joined_at INTEGER NOT NULL,
		PRIMARY KEY (match_id, user_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GenerateJoinCode produces a random six-letter code, retrying against
// inUse (typically registry.JoinCodeInUse) until it finds one not
// currently claimed by a non-finished match.
func GenerateJoinCode(inUse func(code string) bool) (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		code, err := randomJoinCode()
		if err != nil {
			return "", err
		}
		if !inUse(code) {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate unique join code after 100 attempts")
}

func randomJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, joinCodeLength)
	for i, b := range buf {
		out[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(out), nil
}

// CreateMatch inserts a new match row in waiting status.
func (s *Store) CreateMatch(id, code, hostID string, isPublic, isSolo bool) error {
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(
		`INSERT INTO matches (id, code, host_id, status, is_public, is_solo, inserted_at, updated_at)
		 VALUES (?, ?, ?, 'waiting', ?, ?, ?, ?)`,
		id, code, hostID, boolToInt(isPublic), boolToInt(isSolo), now, now,
	)
	return err
}

// AddPlayer inserts a match_players row with a join-order-assigned color.
func (s *Store) AddPlayer(matchID, userID, color string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO match_players (match_id, user_id, color, score, joined_at)
		 VALUES (?, ?, ?, 0, ?)`,
		matchID, userID, color, time.Now().UnixMilli(),
	)
	return err
}

// UpdateStatus implements game.Repository.
func (s *Store) UpdateStatus(matchID string, status game.MatchStatus) error {
	_, err := s.db.Exec(
		`UPDATE matches SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UnixMilli(), matchID,
	)
	return err
}

// FinishMatch implements game.Repository: marks the match finished,
// records the winner and opaque final state, and writes each player's
// integer percentage score.
func (s *Store) FinishMatch(matchID string, result game.FinishResult, finalState game.FullStatePayload) error {
	blob, err := json.Marshal(finalState)
	if err != nil {
		return fmt.Errorf("marshal final state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(
		`UPDATE matches SET status = 'finished', winner_id = ?, final_state = ?, updated_at = ? WHERE id = ?`,
		result.WinnerID, string(blob), now, matchID,
	); err != nil {
		return fmt.Errorf("update match: %w", err)
	}

	for userID, score := range result.Scores {
		if _, err := tx.Exec(
			`UPDATE match_players SET score = ? WHERE match_id = ? AND user_id = ?`,
			int(score), matchID, userID,
		); err != nil {
			return fmt.Errorf("update player score: %w", err)
		}
	}

	return tx.Commit()
}

// CleanupStaleMatches force-marks any waiting/playing match untouched
// since cutoff as finished, for crash-recovery on startup (the in-process
// janitor handles staleness for matches with a live actor; this covers
// rows left behind by a prior process that never got to mark them
// finished).
func (s *Store) CleanupStaleMatches(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(
		`UPDATE matches SET status = 'finished', updated_at = ? WHERE status IN ('waiting','playing') AND updated_at < ?`,
		time.Now().UnixMilli(), cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
