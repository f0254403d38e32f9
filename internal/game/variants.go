// internal/game/variants.go
//
// Game variants.
//
// Every variant runs on the same engine; a variant only contributes
//   - its fixed per-game parameters (Setup),
//   - the rule for deriving the next constraint set from the last word (Next),
//   - an optional terminal condition on the human's constraints (Terminal),
//   - its attempt budget for the machine's search.

package game

import (
	"math/rand/v2"
)

// VariantID names a registered variant.
type VariantID string

const (
	WordChain        VariantID = "word_chain"
	AlphabetSprint   VariantID = "alphabet_sprint"
	LastLetter       VariantID = "last_letter"
	SynonymString    VariantID = "synonym_string"
	WordLadder       VariantID = "word_ladder"
	ForbiddenLetters VariantID = "forbidden_letters"
	RhymeTime        VariantID = "rhyme_time"
)

// Defaults for variant parameters.
const (
	DefaultAttempts      = 3
	DefaultScrambleLevel = 3
	DefaultSynonymFloor  = 0.8
	LadderStartLength    = 2
	LadderMaxLength      = 8
)

// Variant is one game's rule derivation.
type Variant struct {
	ID       VariantID `json:"id"`
	Name     string    `json:"name"`
	Rules    string    `json:"rules"`
	Attempts int       `json:"attempts"`

	// NeedsRhymes marks variants that require a pronouncing dictionary.
	NeedsRhymes bool `json:"-"`

	// Setup returns the parameters fixed for the whole game. The opening
	// word must satisfy their letter rules.
	Setup func(rng *rand.Rand) Constraints `json:"-"`
	// Next derives the constraints for the word following prev. toMachine
	// is true when the machine makes that move.
	Next func(prev string, cur Constraints, toMachine bool) Constraints `json:"-"`
	// Terminal reports whether a human word accepted under cur ends the round.
	Terminal func(cur Constraints) bool `json:"-"`
}

func (v *Variant) setup(rng *rand.Rand) Constraints {
	if v.Setup == nil {
		return Constraints{}
	}
	return v.Setup(rng)
}

func (v *Variant) terminal(cur Constraints) bool {
	return v.Terminal != nil && v.Terminal(cur)
}

// lastLetter chains on the final letter of prev and keeps the fixed parameters.
func lastLetter(prev string, cur Constraints, _ bool) Constraints {
	cur.StartingChar = lastRune(prev)
	return cur
}

func builtinVariants(scrambleLevel int, synonymFloor float64) []*Variant {
	return []*Variant{
		{
			ID:       WordChain,
			Name:     "Word Chain",
			Attempts: DefaultAttempts,
			Rules:    "Each word must start with the last letter of the previous word. No word (or a form of it) may be used twice.",
			Next:     lastLetter,
		},
		{
			ID:       AlphabetSprint,
			Name:     "Alphabet Sprint",
			Attempts: DefaultAttempts,
			Rules:    "Every word must start with the same letter as the opening word. No word (or a form of it) may be used twice.",
			Next: func(prev string, cur Constraints, _ bool) Constraints {
				if cur.StartingChar == 0 {
					cur.StartingChar = firstRune(prev)
				}
				return cur
			},
		},
		{
			ID:       LastLetter,
			Name:     "Last Letter Scramble",
			Attempts: DefaultAttempts,
			Rules:    "Each word must start with the last letter of the previous word and share enough distinct letters with it.",
			Setup: func(*rand.Rand) Constraints {
				return Constraints{MinSharedChars: scrambleLevel}
			},
			Next: lastLetter,
		},
		{
			ID:       SynonymString,
			Name:     "Synonym String",
			Attempts: 5,
			Rules:    "Each word must start with the last letter of the previous word and mean nearly the same thing.",
			Setup: func(*rand.Rand) Constraints {
				return Constraints{SimilarityFloor: synonymFloor}
			},
			Next: lastLetter,
		},
		{
			ID:       WordLadder,
			Name:     "Word Length Ladder",
			Attempts: DefaultAttempts,
			Rules:    "Start with two letters. Each round the words grow one letter longer and start with the last letter of the previous word. Reach eight letters to win.",
			Setup: func(*rand.Rand) Constraints {
				return Constraints{RequiredLength: LadderStartLength}
			},
			Next: func(prev string, cur Constraints, toMachine bool) Constraints {
				cur.StartingChar = lastRune(prev)
				if toMachine {
					cur.RequiredLength++
				}
				return cur
			},
			Terminal: func(cur Constraints) bool {
				return cur.RequiredLength >= LadderMaxLength
			},
		},
		{
			ID:       ForbiddenLetters,
			Name:     "Forbidden Letters",
			Attempts: 5,
			Rules:    "Each word must start with the last letter of the previous word and must never contain the forbidden letter.",
			Setup: func(rng *rand.Rand) Constraints {
				return Constraints{ForbiddenChars: []rune{rune('a' + rng.IntN(26))}}
			},
			Next: lastLetter,
		},
		{
			ID:          RhymeTime,
			Name:        "Rhyme Time",
			Attempts:    DefaultAttempts,
			NeedsRhymes: true,
			Rules:       "Each word must start with the last letter of the previous word and rhyme with it.",
			Next: func(prev string, cur Constraints, _ bool) Constraints {
				cur.StartingChar = lastRune(prev)
				cur.RhymeWith = prev
				return cur
			},
		},
	}
}
