// internal/game/engine.go
//
// Constraint engine shared by every variant.
//
// Responsibilities:
//   - Validate a submitted word against the current constraints, the
//     vocabulary and the chain's stems (ValidateMove, side-effect free).
//   - Search for the machine's answer with a bounded retry loop over the
//     embedding index and the word cache (SelectResponse).
//   - Drive sessions: Start, Play, Hint, Skip.
//
// Notes:
//   - The engine is safe for concurrent use across sessions. A single
//     session must not be played concurrently; internal/store serialises that.
//   - Collaborators are interfaces so tests can build isolated engines.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlink/internal/dictionary"
	"github.com/robalobadob/wordlink/internal/embeddings"
)

// Embeddings is the vector index the engine searches.
type Embeddings interface {
	IsValidWord(word string) bool
	Similarity(a, b string) (float64, error)
	MostSimilarUnder(reference string, startingChar rune, pred func(string) bool) (string, error)
	Candidates(startingChar rune, pred func(string) bool) []string
}

// Words resolves word metadata (normally a *dictionary.Cache).
type Words interface {
	Resolve(ctx context.Context, word string) (dictionary.WordInfo, error)
}

// Rhymer answers rhyme queries (normally a *phonetics.Dict).
type Rhymer interface {
	Rhymes(a, b string) bool
	Tail(word string, n int) ([]string, bool)
}

// openingTries bounds how many random opening words Start resolves.
const openingTries = 3

// Engine validates moves and plays the machine's side.
type Engine struct {
	index  Embeddings
	words  Words
	rhymer Rhymer

	scrambleLevel int
	synonymFloor  float64

	variants []*Variant
	byID     map[VariantID]*Variant

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRhymer enables rhyme checks and the rhyme_time variant.
func WithRhymer(r Rhymer) Option { return func(e *Engine) { e.rhymer = r } }

// WithRand replaces the engine's random source.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// WithScrambleLevel sets the shared-letter count for last_letter.
func WithScrambleLevel(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.scrambleLevel = n
		}
	}
}

// WithSynonymFloor sets the similarity floor for synonym_string.
func WithSynonymFloor(f float64) Option {
	return func(e *Engine) {
		if f > 0 {
			e.synonymFloor = f
		}
	}
}

// WithClock overrides time.Now for session timestamps.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine builds an engine over index and words.
func NewEngine(index Embeddings, words Words, opts ...Option) *Engine {
	e := &Engine{
		index:         index,
		words:         words,
		scrambleLevel: DefaultScrambleLevel,
		synonymFloor:  DefaultSynonymFloor,
		rng:           rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:           time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.variants = builtinVariants(e.scrambleLevel, e.synonymFloor)
	e.byID = make(map[VariantID]*Variant, len(e.variants))
	for _, v := range e.variants {
		e.byID[v.ID] = v
	}
	return e
}

// Variants lists the variants this engine can start, in menu order.
func (e *Engine) Variants() []*Variant {
	out := make([]*Variant, 0, len(e.variants))
	for _, v := range e.variants {
		if v.NeedsRhymes && e.rhymer == nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Variant returns the variant registered under id.
func (e *Engine) Variant(id VariantID) (*Variant, error) {
	v, ok := e.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, id)
	}
	if v.NeedsRhymes && e.rhymer == nil {
		return nil, fmt.Errorf("%w: %q needs a pronouncing dictionary", ErrUnavailable, id)
	}
	return v, nil
}

// ValidateMove checks input as the next word of chain under c and returns
// its resolved metadata. It never modifies chain.
func (e *Engine) ValidateMove(ctx context.Context, input string, chain []dictionary.WordInfo, c Constraints) (dictionary.WordInfo, error) {
	fields := strings.Fields(input)
	switch len(fields) {
	case 0:
		return dictionary.WordInfo{}, reject(KindInvalidInput, "", "please enter a word")
	case 1:
	default:
		return dictionary.WordInfo{}, reject(KindInvalidInput, "", "please enter only one word")
	}
	word := strings.ToLower(fields[0])

	if err := e.check(word, previous(chain), c); err != nil {
		return dictionary.WordInfo{}, err
	}

	info, err := e.resolve(ctx, word)
	if err != nil {
		return dictionary.WordInfo{}, err
	}

	used := usedStems(chain)
	for _, s := range info.Stems {
		if used[s] {
			return dictionary.WordInfo{}, reject(KindAlreadyUsed, word, "that word (or a form of it) has already been used")
		}
	}
	return info, nil
}

// SelectResponse finds the machine's answer to previousWord: the word most
// similar to it that satisfies c, is not used by stem, and resolves. Every
// search, failed resolution or stem collision consumes one of attempts.
func (e *Engine) SelectResponse(ctx context.Context, previousWord string, chain []dictionary.WordInfo, c Constraints, attempts int) (dictionary.WordInfo, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	prev := previous(chain)
	used := usedStems(chain)
	excluded := map[string]bool{}
	pred := func(w string) bool {
		return !excluded[w] && !used[w] && e.check(w, prev, c) == nil
	}

	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return dictionary.WordInfo{}, err
		}
		word, err := e.index.MostSimilarUnder(previousWord, c.StartingChar, pred)
		if err != nil {
			log.Debug().Err(err).Str("reference", previousWord).Int("attempt", i).Msg("no candidate")
			continue
		}
		excluded[word] = true

		info, err := e.words.Resolve(ctx, word)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return dictionary.WordInfo{}, ctxErr
			}
			log.Debug().Err(err).Str("word", word).Int("attempt", i).Msg("candidate did not resolve")
			continue
		}
		if collides(info.Stems, used) {
			log.Debug().Str("word", word).Int("attempt", i).Msg("candidate shares a stem with the chain")
			continue
		}
		return info, nil
	}
	return dictionary.WordInfo{}, &MoveError{
		Kind:     KindNoValidWord,
		Word:     previousWord,
		Msg:      "no valid answer",
		Attempts: attempts,
	}
}

// check applies every constraint to word; prev is the last chain entry.
func (e *Engine) check(word, prev string, c Constraints) error {
	if err := c.CheckLetters(word, prev); err != nil {
		return err
	}
	if c.RhymeWith != "" {
		if e.rhymer == nil || !e.rhymer.Rhymes(word, c.RhymeWith) {
			return reject(KindConstraintViolation, word, "word must rhyme with %q", c.RhymeWith)
		}
	}
	if c.SimilarityFloor > 0 && prev != "" {
		sim, err := e.index.Similarity(word, prev)
		if err != nil {
			if errors.Is(err, embeddings.ErrInvalidWord) && !e.index.IsValidWord(word) {
				return &MoveError{Kind: KindNotFound, Word: word, Msg: "unknown word"}
			}
			return reject(KindConstraintViolation, word, "cannot compare with %q", prev)
		}
		if sim < c.SimilarityFloor {
			return reject(KindConstraintViolation, word, "word is not close enough to %q (%.2f < %.2f)", prev, sim, c.SimilarityFloor)
		}
	}
	return nil
}

// resolve maps dictionary failures onto the move taxonomy.
func (e *Engine) resolve(ctx context.Context, word string) (dictionary.WordInfo, error) {
	info, err := e.words.Resolve(ctx, word)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, dictionary.ErrNotFound):
		return info, &MoveError{Kind: KindNotFound, Word: word, Msg: "unknown word", Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return info, err
	default:
		return info, &MoveError{Kind: KindLookupFailed, Word: word, Msg: "no definition available", Err: err}
	}
}

// StartOptions tune how a session begins.
type StartOptions struct {
	// Opening forces the opening word instead of drawing one.
	Opening string
	// Seed, when non-zero, makes the game parameters and the opening draw
	// deterministic.
	Seed uint64
	// Daily tags the session with a date key.
	Daily string
}

// Start begins a new session for chatID.
func (e *Engine) Start(ctx context.Context, chatID string, id VariantID, opts StartOptions) (*Session, error) {
	v, err := e.Variant(id)
	if err != nil {
		return nil, err
	}

	var pick func(n int) int
	var base Constraints
	if opts.Seed != 0 {
		rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
		base = v.setup(rng)
		pick = rng.IntN
	} else {
		e.mu.Lock()
		base = v.setup(e.rng)
		e.mu.Unlock()
		pick = e.intN
	}

	opening, err := e.opening(ctx, v, base, opts.Opening, pick)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		Variant:     v.ID,
		Chain:       []dictionary.WordInfo{opening},
		Constraints: v.Next(opening.Word, base, false),
		Turn:        TurnHuman,
		Phase:       PhaseActive,
		Daily:       opts.Daily,
		StartedAt:   e.now(),
	}
	log.Info().Str("session", s.ID).Str("chat", chatID).Str("variant", string(v.ID)).
		Str("opening", opening.Word).Msg("game started")
	return s, nil
}

// OpeningCandidates lists every indexed word that can open a game of v
// under the fixed parameters base.
func (e *Engine) OpeningCandidates(v *Variant, base Constraints) []string {
	return e.index.Candidates(0, func(w string) bool { return e.canOpen(v, base, w) })
}

func (e *Engine) canOpen(v *Variant, base Constraints, w string) bool {
	if base.CheckLetters(w, "") != nil {
		return false
	}
	if v.NeedsRhymes {
		if _, ok := e.rhymer.Tail(w, 1); !ok {
			return false
		}
	}
	return true
}

func (e *Engine) opening(ctx context.Context, v *Variant, base Constraints, forced string, pick func(int) int) (dictionary.WordInfo, error) {
	if forced != "" {
		word := strings.ToLower(strings.TrimSpace(forced))
		if !e.canOpen(v, base, word) {
			return dictionary.WordInfo{}, reject(KindConstraintViolation, word, "cannot open %s", v.Name)
		}
		return e.resolve(ctx, word)
	}

	candidates := e.OpeningCandidates(v, base)
	var lastErr error
	for i := 0; i < openingTries && len(candidates) > 0; i++ {
		j := pick(len(candidates))
		word := candidates[j]
		candidates[j] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]

		info, err := e.resolve(ctx, word)
		if err == nil {
			return info, nil
		}
		if ctx.Err() != nil {
			return dictionary.WordInfo{}, ctx.Err()
		}
		log.Warn().Err(err).Str("word", word).Msg("opening word did not resolve")
		lastErr = err
	}
	return dictionary.WordInfo{}, &MoveError{
		Kind: KindNoValidWord, Msg: "no opening word available", Attempts: openingTries, Err: lastErr,
	}
}

// Play applies the human's input to s and, if accepted, the machine's reply.
// A rejected move leaves s unchanged. The machine running out of answers
// finishes the round in the human's favour and is not an error.
func (e *Engine) Play(ctx context.Context, s *Session, input string) (Result, error) {
	if s.Phase != PhaseActive {
		return Result{}, ErrFinished
	}
	v, err := e.Variant(s.Variant)
	if err != nil {
		return Result{}, err
	}

	human, err := e.ValidateMove(ctx, input, s.Chain, s.Constraints)
	if err != nil {
		return Result{}, err
	}

	res := Result{Human: &human}
	mark := len(s.Chain)
	s.Chain = append(s.Chain, human)
	s.HumanMoves++

	if v.terminal(s.Constraints) {
		s.finish(OutcomeMaxLength, e.now())
		res.Outcome = s.Outcome
		res.Finished = true
		return res, nil
	}

	mc := v.Next(human.Word, s.Constraints, true)
	s.Turn = TurnMachine
	reply, err := e.SelectResponse(ctx, human.Word, s.Chain, mc, v.Attempts)
	switch {
	case errors.Is(err, ErrNoValidWord):
		s.finish(OutcomeHumanWon, e.now())
		res.Outcome = s.Outcome
		res.Finished = true
		return res, nil
	case err != nil:
		// Interrupted before the machine moved; undo the human move.
		s.Chain = s.Chain[:mark]
		s.HumanMoves--
		s.Turn = TurnHuman
		return Result{}, err
	}

	s.Chain = append(s.Chain, reply)
	s.Constraints = v.Next(reply.Word, mc, false)
	s.Turn = TurnHuman
	res.Machine = &reply
	res.Next = s.Constraints
	return res, nil
}

// Hint suggests an unused word satisfying the human's current constraints.
// The session is not modified.
func (e *Engine) Hint(_ context.Context, s *Session) (string, error) {
	if s.Phase != PhaseActive {
		return "", ErrFinished
	}
	candidates := e.humanCandidates(s, nil)
	if len(candidates) == 0 {
		return "", &MoveError{Kind: KindNoValidWord, Msg: "no hint available"}
	}
	return candidates[e.intN(len(candidates))], nil
}

// Skip lets the machine play a random valid word in the human's place. If
// none can be found the round ends abandoned.
func (e *Engine) Skip(ctx context.Context, s *Session) (Result, error) {
	if s.Phase != PhaseActive {
		return Result{}, ErrFinished
	}
	v, err := e.Variant(s.Variant)
	if err != nil {
		return Result{}, err
	}

	excluded := map[string]bool{}
	used := usedStems(s.Chain)
	for i := 0; i < v.Attempts; i++ {
		candidates := e.humanCandidates(s, excluded)
		if len(candidates) == 0 {
			break
		}
		word := candidates[e.intN(len(candidates))]
		excluded[word] = true

		info, err := e.words.Resolve(ctx, word)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			continue
		}
		if collides(info.Stems, used) {
			continue
		}
		s.Chain = append(s.Chain, info)
		s.Skips++
		s.Constraints = v.Next(info.Word, s.Constraints, false)
		return Result{Machine: &info, Next: s.Constraints}, nil
	}

	s.finish(OutcomeAbandoned, e.now())
	return Result{Finished: true, Outcome: s.Outcome}, nil
}

func (e *Engine) humanCandidates(s *Session, excluded map[string]bool) []string {
	prev := previous(s.Chain)
	used := usedStems(s.Chain)
	return e.index.Candidates(s.Constraints.StartingChar, func(w string) bool {
		return !excluded[w] && !used[w] && e.check(w, prev, s.Constraints) == nil
	})
}

func (e *Engine) intN(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.IntN(n)
}

func previous(chain []dictionary.WordInfo) string {
	if len(chain) == 0 {
		return ""
	}
	return chain[len(chain)-1].Word
}

// usedStems is the stem set of every chain entry, words included.
func usedStems(chain []dictionary.WordInfo) map[string]bool {
	used := make(map[string]bool, len(chain)*2)
	for _, w := range chain {
		used[w.Word] = true
		for _, s := range w.Stems {
			used[s] = true
		}
	}
	return used
}

func collides(stems []string, used map[string]bool) bool {
	for _, s := range stems {
		if used[s] {
			return true
		}
	}
	return false
}

// Stop finishes s at the player's request.
func (e *Engine) Stop(s *Session) {
	s.Stop(e.now())
	log.Info().Str("session", s.ID).Int("words", len(s.Chain)).Msg("game stopped")
}
