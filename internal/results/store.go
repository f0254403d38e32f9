// internal/results/store.go
//
// Finished-round persistence: per-player stats and the daily leaderboard.
//
// Rounds are keyed by session ID, so recording the same session twice is a
// no-op. Daily rounds are unique per (player, variant, date); a second daily
// round for the same day is rejected with ErrAlreadyPlayed.

package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/robalobadob/wordlink/internal/game"
)

// ErrAlreadyPlayed is returned when a player records a second daily round.
var ErrAlreadyPlayed = errors.New("results: daily round already played")

// Round is one finished game.
type Round struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	Variant    string    `json:"variant"`
	Daily      string    `json:"daily,omitempty"`
	Words      []string  `json:"words"`
	HumanMoves int       `json:"humanMoves"`
	Skips      int       `json:"skips"`
	Outcome    string    `json:"outcome"`
	Won        bool      `json:"won"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// RoundFromSession converts a finished session.
func RoundFromSession(playerID string, s *game.Session) Round {
	return Round{
		ID:         s.ID,
		PlayerID:   playerID,
		Variant:    string(s.Variant),
		Daily:      s.Daily,
		Words:      s.Words(),
		HumanMoves: s.HumanMoves,
		Skips:      s.Skips,
		Outcome:    string(s.Outcome),
		Won:        s.Outcome.Won(),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

// Stats summarises one player's rounds.
type Stats struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name,omitempty"`
	Games     int    `json:"games"`
	Wins      int    `json:"wins"`
	BestChain int    `json:"bestChain"` // most words the player supplied in one round
	Words     int    `json:"words"`     // total words the player supplied
}

// LBRow is one leaderboard entry.
type LBRow struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name,omitempty"`
	Variant    string `json:"variant"`
	HumanMoves int    `json:"humanMoves"`
	Won        bool   `json:"won"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

// Store reads and writes rounds.
type Store struct{ db *sql.DB }

// NewStore wraps a migrated database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// UpsertPlayer records a display name for id.
func (s *Store) UpsertPlayer(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players(id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name`, id, name)
	return err
}

// Record stores a finished round.
func (s *Store) Record(ctx context.Context, r Round) error {
	opening := ""
	if len(r.Words) > 0 {
		opening = r.Words[0]
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds
			(id, player_id, variant, daily, opening, words, chain_length, human_moves,
			 skips, outcome, won, started_at, finished_at, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		r.ID, r.PlayerID, r.Variant, r.Daily, opening, strings.Join(r.Words, " "), len(r.Words),
		r.HumanMoves, r.Skips, r.Outcome, r.Won, r.StartedAt.UTC(), r.FinishedAt.UTC(),
		r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	)
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s %s", ErrAlreadyPlayed, r.Variant, r.Daily)
	}
	return err
}

// DailyPlayed reports whether playerID already finished variant's daily round on date.
func (s *Store) DailyPlayed(ctx context.Context, playerID, variant, date string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM rounds WHERE player_id=? AND variant=? AND daily=?`,
		playerID, variant, date,
	).Scan(&n)
	return n > 0, err
}

// PlayerStats aggregates every round of playerID.
func (s *Store) PlayerStats(ctx context.Context, playerID string) (Stats, error) {
	st := Stats{PlayerID: playerID}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(r.id),
		       COALESCE(SUM(r.won), 0),
		       COALESCE(MAX(r.human_moves), 0),
		       COALESCE(SUM(r.human_moves), 0),
		       COALESCE((SELECT name FROM players WHERE id=?), '')
		FROM rounds r WHERE r.player_id=?`, playerID, playerID,
	).Scan(&st.Games, &st.Wins, &st.BestChain, &st.Words, &st.Name)
	return st, err
}

// Leaderboard returns the best daily rounds for date: wins first, then the
// most words supplied, then the fastest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.player_id, COALESCE(p.name, ''), r.variant, r.human_moves, r.won, r.elapsed_ms
		FROM rounds r LEFT JOIN players p ON p.id = r.player_id
		WHERE r.daily=?
		ORDER BY r.won DESC, r.human_moves DESC, r.elapsed_ms ASC, r.finished_at ASC
		LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Name, &r.Variant, &r.HumanMoves, &r.Won, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
