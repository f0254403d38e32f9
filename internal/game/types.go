// internal/game/types.go
//
// Session state for one game of word association.
// Defines:
//   - Phase:   lifecycle of a session (active/finished).
//   - Outcome: why a finished session ended.
//   - Turn:    whose move the session is waiting for.
//   - Session: chain, constraints and counters for one game.
//   - Result:  what a single Play/Skip call produced.

package game

import (
	"strings"
	"time"

	"github.com/robalobadob/wordlink/internal/dictionary"
)

// Phase is the coarse lifecycle state of a session.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// Outcome records how a session ended.
//   - "human_won":  the machine found no valid answer.
//   - "max_length": the ladder reached its top rung.
//   - "stopped":    the player stopped the game.
//   - "abandoned":  a skip found no word to play.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeHumanWon  Outcome = "human_won"
	OutcomeMaxLength Outcome = "max_length"
	OutcomeStopped   Outcome = "stopped"
	OutcomeAbandoned Outcome = "abandoned"
)

// Won reports whether the outcome counts as a win for the player.
func (o Outcome) Won() bool { return o == OutcomeHumanWon || o == OutcomeMaxLength }

// Turn says who moves next.
type Turn string

const (
	TurnHuman   Turn = "human"
	TurnMachine Turn = "machine"
)

// Session holds one game. Chain[0] is the opening word; human and machine
// words alternate after it, except where a skip let the machine play twice.
type Session struct {
	ID          string                `json:"id"`
	ChatID      string                `json:"chatId"`
	Variant     VariantID             `json:"variant"`
	Chain       []dictionary.WordInfo `json:"chain"`
	Constraints Constraints           `json:"constraints"`
	Turn        Turn                  `json:"turn"`
	Phase       Phase                 `json:"phase"`
	Outcome     Outcome               `json:"outcome,omitempty"`
	HumanMoves  int                   `json:"humanMoves"`
	Skips       int                   `json:"skips"`
	Daily       string                `json:"daily,omitempty"` // YYYY-MM-DD for daily games
	StartedAt   time.Time             `json:"startedAt"`
	FinishedAt  time.Time             `json:"finishedAt,omitempty"`
}

// Score counts the words played so far.
type Score struct {
	Total   int `json:"total"`
	Human   int `json:"human"`
	Machine int `json:"machine"`
}

// Result is what a Play or Skip call produced.
type Result struct {
	Human    *dictionary.WordInfo `json:"human,omitempty"`
	Machine  *dictionary.WordInfo `json:"machine,omitempty"`
	Finished bool                 `json:"finished"`
	Outcome  Outcome              `json:"outcome,omitempty"`
	Next     Constraints          `json:"next"`
}

// Stop ends an active session at the player's request.
func (s *Session) Stop(now time.Time) {
	if s.Phase == PhaseActive {
		s.finish(OutcomeStopped, now)
	}
}

// Score returns the word counts; the opening word is the machine's.
func (s *Session) Score() Score {
	return Score{
		Total:   len(s.Chain),
		Human:   s.HumanMoves,
		Machine: len(s.Chain) - s.HumanMoves,
	}
}

// Words returns the chain as plain words.
func (s *Session) Words() []string {
	out := make([]string, len(s.Chain))
	for i, w := range s.Chain {
		out[i] = w.Word
	}
	return out
}

// Last returns the most recent word, or "".
func (s *Session) Last() string { return previous(s.Chain) }

// Longest returns the length of the longest word in the chain.
func (s *Session) Longest() int {
	n := 0
	for _, w := range s.Chain {
		if l := len([]rune(w.Word)); l > n {
			n = l
		}
	}
	return n
}

// Summary is a one-line description of the chain.
func (s *Session) Summary() string {
	return strings.Join(s.Words(), " → ")
}

func (s *Session) finish(o Outcome, now time.Time) {
	s.Phase = PhaseFinished
	s.Outcome = o
	s.Turn = TurnHuman
	s.FinishedAt = now
}
