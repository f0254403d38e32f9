package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordlink/internal/dictionary"
	"github.com/robalobadob/wordlink/internal/embeddings"
	"github.com/robalobadob/wordlink/internal/phonetics"
)

const vectors = `apple 1.0 0.0
eagle 0.9 0.1
egg 0.8 0.2
elephant 0.1 0.9
elk 0.5 0.5
stone 0.3 0.3
tons 0.3 0.31
pie 0.7 0.1
at 0.2 0.9
to 0.25 0.85
owl 0.4 0.6
log 0.5 0.4
goat 0.6 0.3
gnat 0.55 0.35
tail 0.2 0.4
lamb 0.3 0.5
umber 0.1 0.2
unit 0.2 0.1
urge 0.3 0.2
usher 0.4 0.1
`

var extraStems = map[string][]string{
	"apple": {"apples"},
	"eagle": {"eagles"},
	"egg":   {"eggs", "egged"},
	"goat":  {"goats"},
}

// fakeWords resolves every indexed word except those listed as failing.
type fakeWords struct {
	index *embeddings.Index
	fail  map[string]bool

	mu    sync.Mutex
	calls []string
}

func (f *fakeWords) Resolve(_ context.Context, word string) (dictionary.WordInfo, error) {
	f.mu.Lock()
	f.calls = append(f.calls, word)
	f.mu.Unlock()

	if !f.index.IsValidWord(word) {
		return dictionary.WordInfo{}, fmt.Errorf("%w: %q", dictionary.ErrNotFound, word)
	}
	if f.fail[word] {
		return dictionary.WordInfo{}, fmt.Errorf("%w: %q", dictionary.ErrLookupFailed, word)
	}
	return dictionary.WordInfo{
		Word:  word,
		Stems: append([]string{word}, extraStems[word]...),
		Defs:  []dictionary.Definition{{FunctionalLabel: "noun", Definitions: []string{"a " + word}}},
	}, nil
}

// countingIndex counts searches against the wrapped index.
type countingIndex struct {
	*embeddings.Index
	searches int
}

func (c *countingIndex) MostSimilarUnder(ref string, ch rune, pred func(string) bool) (string, error) {
	c.searches++
	return c.Index.MostSimilarUnder(ref, ch, pred)
}

func loadIndex(t *testing.T) *embeddings.Index {
	t.Helper()
	ix, err := embeddings.Load(strings.NewReader(vectors))
	require.NoError(t, err)
	return ix
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *fakeWords) {
	t.Helper()
	ix := loadIndex(t)
	words := &fakeWords{index: ix, fail: map[string]bool{"umber": true, "unit": true, "urge": true, "usher": true}}
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return NewEngine(ix, words, opts...), words
}

func info(w string) dictionary.WordInfo {
	return dictionary.WordInfo{Word: w, Stems: append([]string{w}, extraStems[w]...)}
}

func chainOf(words ...string) []dictionary.WordInfo {
	out := make([]dictionary.WordInfo, len(words))
	for i, w := range words {
		out[i] = info(w)
	}
	return out
}

func TestValidateMove_InvalidInput(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	for _, in := range []string{"", "   ", "two words"} {
		_, err := e.ValidateMove(ctx, in, nil, Constraints{})
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", in)
	}
}

func TestValidateMove_Normalizes(t *testing.T) {
	e, _ := newEngine(t)
	got, err := e.ValidateMove(context.Background(), "  EAGLE ", chainOf("apple"), Constraints{StartingChar: 'e'})
	require.NoError(t, err)
	assert.Equal(t, "eagle", got.Word)
}

func TestValidateMove_AlreadyUsed(t *testing.T) {
	e, words := newEngine(t)
	_, err := e.ValidateMove(context.Background(), "apple", chainOf("apple"), Constraints{})
	assert.ErrorIs(t, err, ErrAlreadyUsed)
	assert.Equal(t, KindAlreadyUsed, KindOf(err))
	assert.Contains(t, words.calls, "apple", "the resolver considered it new; the chain did not")
}

func TestValidateMove_AlreadyUsedByStem(t *testing.T) {
	e, _ := newEngine(t)
	chain := []dictionary.WordInfo{{Word: "eggs", Stems: []string{"eggs", "egg"}}}
	_, err := e.ValidateMove(context.Background(), "egg", chain, Constraints{})
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestValidateMove_SharedChars(t *testing.T) {
	e, _ := newEngine(t)
	c := Constraints{MinSharedChars: 2}
	chain := chainOf("stone")

	got, err := e.ValidateMove(context.Background(), "tons", chain, c)
	require.NoError(t, err)
	assert.Equal(t, "tons", got.Word)

	_, err = e.ValidateMove(context.Background(), "pie", chain, c)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestValidateMove_LetterRules(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	chain := chainOf("apple")

	_, err := e.ValidateMove(ctx, "tail", chain, Constraints{StartingChar: 'e'})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = e.ValidateMove(ctx, "egg", chain, Constraints{RequiredLength: 4})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = e.ValidateMove(ctx, "egg", chain, Constraints{ForbiddenChars: []rune{'g'}})
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestValidateMove_ResolveFailures(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.ValidateMove(ctx, "zebra", nil, Constraints{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.ValidateMove(ctx, "usher", nil, Constraints{})
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestValidateMove_SimilarityFloorInclusive(t *testing.T) {
	e, _ := newEngine(t)
	ix := loadIndex(t)
	sim, err := ix.Similarity("egg", "eagle")
	require.NoError(t, err)

	chain := chainOf("eagle")
	_, err = e.ValidateMove(context.Background(), "egg", chain, Constraints{SimilarityFloor: sim})
	assert.NoError(t, err)

	_, err = e.ValidateMove(context.Background(), "egg", chain, Constraints{SimilarityFloor: sim + 1e-9})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = e.ValidateMove(context.Background(), "zebra", chain, Constraints{SimilarityFloor: 0.5})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateMove_Rhyme(t *testing.T) {
	dict := phonetics.New(map[string][]string{
		"goat": {"G", "OW1", "T"},
		"gnat": {"N", "AE1", "T"},
		"at":   {"AE1", "T"},
	})
	e, _ := newEngine(t, WithRhymer(dict))

	_, err := e.ValidateMove(context.Background(), "goat", nil, Constraints{RhymeWith: "gnat"})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = e.ValidateMove(context.Background(), "at", nil, Constraints{RhymeWith: "at"})
	assert.NoError(t, err)

	_, err = e.ValidateMove(context.Background(), "egg", nil, Constraints{RhymeWith: "at"})
	assert.ErrorIs(t, err, ErrConstraintViolation, "no pronunciation means no rhyme")
}

func TestSelectResponse_MostSimilar(t *testing.T) {
	e, _ := newEngine(t)
	chain := chainOf("apple", "eagle")

	got, err := e.SelectResponse(context.Background(), "eagle", chain, Constraints{StartingChar: 'e'}, 3)
	require.NoError(t, err)
	assert.Equal(t, "egg", got.Word)
}

func TestSelectResponse_RespectsForbiddenLetters(t *testing.T) {
	e, _ := newEngine(t)
	chain := chainOf("apple", "eagle")
	c := Constraints{StartingChar: 'e', ForbiddenChars: []rune{'g'}}

	got, err := e.SelectResponse(context.Background(), "eagle", chain, c, 3)
	require.NoError(t, err)
	assert.NotContains(t, got.Word, "g")
	assert.True(t, strings.HasPrefix(got.Word, "e"))
}

func TestSelectResponse_EmptyBucketUsesWholeBudget(t *testing.T) {
	ix := loadIndex(t)
	counting := &countingIndex{Index: ix}
	e := NewEngine(counting, &fakeWords{index: ix})

	_, err := e.SelectResponse(context.Background(), "apple", chainOf("apple"), Constraints{StartingChar: 'z'}, 3)
	require.ErrorIs(t, err, ErrNoValidWord)

	var me *MoveError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 3, me.Attempts)
	assert.Equal(t, 3, counting.searches)
}

func TestSelectResponse_ResolveFailuresConsumeAttempts(t *testing.T) {
	ix := loadIndex(t)
	counting := &countingIndex{Index: ix}
	words := &fakeWords{index: ix, fail: map[string]bool{"umber": true, "unit": true, "urge": true, "usher": true}}
	e := NewEngine(counting, words)

	_, err := e.SelectResponse(context.Background(), "apple", chainOf("apple"), Constraints{StartingChar: 'u'}, 3)
	require.ErrorIs(t, err, ErrNoValidWord)
	assert.Equal(t, 3, counting.searches)
	require.Len(t, words.calls, 3)
	assert.ElementsMatch(t, words.calls, uniq(words.calls), "each failed word is excluded from later attempts")
}

func TestSelectResponse_SkipsStemCollisions(t *testing.T) {
	e, _ := newEngine(t)
	// "eggs" is a stem of egg but not itself indexed, so only the resolved
	// stems reveal the collision.
	chain := []dictionary.WordInfo{info("apple"), {Word: "eagle", Stems: []string{"eagle", "eggs"}}}

	got, err := e.SelectResponse(context.Background(), "eagle", chain, Constraints{StartingChar: 'e'}, 3)
	require.NoError(t, err)
	assert.NotEqual(t, "egg", got.Word)
}

func TestStart_ForcedOpening(t *testing.T) {
	e, _ := newEngine(t)
	s, err := e.Start(context.Background(), "chat-1", WordChain, StartOptions{Opening: "Apple"})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "chat-1", s.ChatID)
	assert.Equal(t, []string{"apple"}, s.Words())
	assert.Equal(t, 'e', s.Constraints.StartingChar)
	assert.Equal(t, PhaseActive, s.Phase)
	assert.Equal(t, TurnHuman, s.Turn)
}

func TestStart_Errors(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Start(ctx, "c", "chess", StartOptions{})
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = e.Start(ctx, "c", RhymeTime, StartOptions{})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = e.Start(ctx, "c", WordLadder, StartOptions{Opening: "apple"})
	assert.ErrorIs(t, err, ErrConstraintViolation, "ladder opens with two letters")
}

func TestStart_SeedIsDeterministic(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	a, err := e.Start(ctx, "a", ForbiddenLetters, StartOptions{Seed: 20240101})
	require.NoError(t, err)
	b, err := e.Start(ctx, "b", ForbiddenLetters, StartOptions{Seed: 20240101})
	require.NoError(t, err)

	assert.Equal(t, a.Words(), b.Words())
	assert.Equal(t, a.Constraints, b.Constraints)
	require.Len(t, a.Constraints.ForbiddenChars, 1)
	assert.NotContains(t, a.Last(), string(a.Constraints.ForbiddenChars[0]))
}

func TestPlay_WordChainRound(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	s, err := e.Start(ctx, "c", WordChain, StartOptions{Opening: "apple"})
	require.NoError(t, err)

	res, err := e.Play(ctx, s, "eagle")
	require.NoError(t, err)
	require.NotNil(t, res.Machine)
	assert.Equal(t, "eagle", res.Human.Word)
	assert.Equal(t, "egg", res.Machine.Word)
	assert.False(t, res.Finished)
	assert.Equal(t, 'g', s.Constraints.StartingChar)
	assert.Equal(t, res.Next, s.Constraints)

	res, err = e.Play(ctx, s, "goat")
	require.NoError(t, err)
	require.NotNil(t, res.Machine)
	assert.True(t, strings.HasPrefix(res.Machine.Word, "t"))

	assert.Equal(t, Score{Total: 5, Human: 2, Machine: 3}, s.Score())
	assertNoSharedStems(t, s.Chain)
}

func TestPlay_RejectionLeavesSessionUntouched(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	s, err := e.Start(ctx, "c", WordChain, StartOptions{Opening: "apple"})
	require.NoError(t, err)
	before := *s

	for _, in := range []string{"tail", "two words", "apple", "zebra"} {
		_, err := e.Play(ctx, s, in)
		assert.Error(t, err, in)
	}
	assert.Equal(t, before.Words(), s.Words())
	assert.Equal(t, before.Constraints, s.Constraints)
	assert.Zero(t, s.HumanMoves)
	assert.Equal(t, PhaseActive, s.Phase)
}

func TestPlay_MachineStuckMeansHumanWins(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	s, err := e.Start(ctx, "c", WordChain, StartOptions{Opening: "apple"})
	require.NoError(t, err)

	res, err := e.Play(ctx, s, "elk")
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Nil(t, res.Machine)
	assert.Equal(t, OutcomeHumanWon, res.Outcome)
	assert.Equal(t, PhaseFinished, s.Phase)
	assert.True(t, s.Outcome.Won())
	assert.False(t, s.FinishedAt.IsZero())

	_, err = e.Play(ctx, s, "kite")
	assert.ErrorIs(t, err, ErrFinished)
}

func TestPlay_Ladder(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	s, err := e.Start(ctx, "c", WordLadder, StartOptions{Opening: "at"})
	require.NoError(t, err)
	assert.Equal(t, Constraints{StartingChar: 't', RequiredLength: 2}, s.Constraints)

	res, err := e.Play(ctx, s, "to")
	require.NoError(t, err)
	require.NotNil(t, res.Machine)
	assert.Equal(t, "owl", res.Machine.Word)
	assert.Equal(t, Constraints{StartingChar: 'l', RequiredLength: 3}, s.Constraints)

	res, err = e.Play(ctx, s, "log")
	require.NoError(t, err)
	require.NotNil(t, res.Machine)
	assert.Len(t, res.Machine.Word, 4)
	assert.Equal(t, 4, s.Constraints.RequiredLength)
}

func TestPlay_LadderTopRungEndsRound(t *testing.T) {
	e, _ := newEngine(t)
	s := &Session{
		Variant:     WordLadder,
		Chain:       chainOf("apple"),
		Constraints: Constraints{StartingChar: 'e', RequiredLength: LadderMaxLength},
		Phase:       PhaseActive,
		Turn:        TurnHuman,
	}

	res, err := e.Play(context.Background(), s, "elephant")
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, OutcomeMaxLength, s.Outcome)
	assert.Nil(t, res.Machine)
}

func TestPlay_AlphabetSprintKeepsLetter(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	s, err := e.Start(ctx, "c", AlphabetSprint, StartOptions{Opening: "egg"})
	require.NoError(t, err)
	assert.Equal(t, 'e', s.Constraints.StartingChar)

	res, err := e.Play(ctx, s, "eagle")
	require.NoError(t, err)
	require.NotNil(t, res.Machine)
	assert.True(t, strings.HasPrefix(res.Machine.Word, "e"))
	assert.Equal(t, 'e', s.Constraints.StartingChar)
}

func TestPlay_ForbiddenLettersNeverAccepted(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	s := &Session{
		Variant:     ForbiddenLetters,
		Chain:       chainOf("apple"),
		Constraints: Constraints{StartingChar: 'e', ForbiddenChars: []rune{'g'}},
		Phase:       PhaseActive,
		Turn:        TurnHuman,
	}

	_, err := e.Play(ctx, s, "egg")
	require.ErrorIs(t, err, ErrConstraintViolation)

	_, err = e.Play(ctx, s, "elephant")
	require.NoError(t, err)
	for _, w := range s.Words()[1:] {
		assert.NotContains(t, w, "g", "accepted word %q", w)
	}
	assert.Equal(t, []rune{'g'}, s.Constraints.ForbiddenChars)
}

func TestPlay_CancelledBeforeMachineMoves(t *testing.T) {
	e, _ := newEngine(t)
	s, err := e.Start(context.Background(), "c", WordChain, StartOptions{Opening: "apple"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Play(ctx, s, "eagle")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"apple"}, s.Words())
	assert.Zero(t, s.HumanMoves)
}

func TestHint(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	s, err := e.Start(ctx, "c", WordChain, StartOptions{Opening: "apple"})
	require.NoError(t, err)

	hint, err := e.Hint(ctx, s)
	require.NoError(t, err)
	assert.Contains(t, []string{"eagle", "egg", "elephant", "elk"}, hint)
	assert.Equal(t, []string{"apple"}, s.Words())

	s.Constraints.StartingChar = 'k'
	_, err = e.Hint(ctx, s)
	assert.ErrorIs(t, err, ErrNoValidWord)
}

func TestSkip(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	s, err := e.Start(ctx, "c", WordChain, StartOptions{Opening: "apple"})
	require.NoError(t, err)

	res, err := e.Skip(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, res.Machine)
	assert.True(t, strings.HasPrefix(res.Machine.Word, "e"))
	assert.Equal(t, 1, s.Skips)
	assert.Equal(t, lastRune(res.Machine.Word), s.Constraints.StartingChar)
	assert.Equal(t, Score{Total: 2, Human: 0, Machine: 2}, s.Score())
}

func TestSkip_NothingToPlayAbandons(t *testing.T) {
	e, _ := newEngine(t)
	s := &Session{
		Variant:     WordChain,
		Chain:       chainOf("elk"),
		Constraints: Constraints{StartingChar: 'k'},
		Phase:       PhaseActive,
	}
	res, err := e.Skip(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, OutcomeAbandoned, s.Outcome)
}

func TestStop(t *testing.T) {
	e, _ := newEngine(t)
	s, err := e.Start(context.Background(), "c", WordChain, StartOptions{Opening: "apple"})
	require.NoError(t, err)

	e.Stop(s)
	assert.Equal(t, PhaseFinished, s.Phase)
	assert.Equal(t, OutcomeStopped, s.Outcome)
	assert.False(t, s.Outcome.Won())

	e.Stop(s)
	assert.Equal(t, OutcomeStopped, s.Outcome)
}

func TestVariants(t *testing.T) {
	e, _ := newEngine(t)
	for _, v := range e.Variants() {
		assert.NotEqual(t, RhymeTime, v.ID, "rhyme time needs a pronouncing dictionary")
		assert.NotEmpty(t, v.Rules)
	}
	assert.Len(t, e.Variants(), 6)

	withRhymes, _ := newEngine(t, WithRhymer(phonetics.New(nil)))
	assert.Len(t, withRhymes.Variants(), 7)

	v, err := e.Variant(SynonymString)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Attempts)
}

func TestSharedChars(t *testing.T) {
	assert.Equal(t, 4, SharedChars("tons", "stone"))
	assert.Equal(t, 1, SharedChars("pie", "stone"))
	assert.Equal(t, 1, SharedChars("aaa", "banana"), "letters count once")
	assert.Equal(t, 0, SharedChars("", "stone"))
}

func TestConstraints_Describe(t *testing.T) {
	assert.Equal(t, "any word", Constraints{}.Describe())
	assert.Equal(t, "a word that starts with 'e' and is 3 letters long",
		Constraints{StartingChar: 'e', RequiredLength: 3}.Describe())
}

func assertNoSharedStems(t *testing.T, chain []dictionary.WordInfo) {
	t.Helper()
	owner := map[string]string{}
	for _, w := range chain {
		for _, s := range w.Stems {
			if prev, ok := owner[s]; ok {
				t.Errorf("stem %q shared by %q and %q", s, prev, w.Word)
			}
			owner[s] = w.Word
		}
	}
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
