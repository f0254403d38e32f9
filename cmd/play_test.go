package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordlink/internal/app"
	"github.com/robalobadob/wordlink/internal/config"
)

func newApp(t *testing.T) *app.App {
	t.Helper()
	dir := t.TempDir()
	emb := filepath.Join(dir, "vectors.txt")
	require.NoError(t, os.WriteFile(emb, []byte("apple 1 0\neagle 0.9 0.1\negg 0.8 0.2\ngoat 0 1\n"), 0o644))
	defs := filepath.Join(dir, "defs.json")
	require.NoError(t, os.WriteFile(defs, []byte(`{
		"apple": [{"fl":"noun","shortdef":["a round fruit"]}],
		"eagle": [{"fl":"noun","shortdef":["a large bird of prey"]}],
		"egg":   [{"fl":"noun","shortdef":["an oval object"]}],
		"goat":  [{"fl":"noun","shortdef":["a horned animal"]}]
	}`), 0o644))

	c := config.FromEnv()
	c.EmbeddingsFile = emb
	c.DefinitionsFile = defs
	c.CMUDictFile = ""
	c.MerriamWebsterKey = ""
	c.CacheSnapshot = ""
	c.DBPath = ":memory:"

	a, err := app.New(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestPlay_MachineStumped(t *testing.T) {
	a := newApp(t)
	var out bytes.Buffer
	in := strings.NewReader("/rules\ntable\neagle\n/score\ngoat\n")

	err := play(context.Background(), a, in, &out, playOptions{Variant: "word_chain", Opening: "apple"})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "machine: apple\n  (noun) a round fruit")
	assert.Contains(t, got, "rejected:")
	assert.Contains(t, got, "machine: egg")
	assert.Contains(t, got, "apple → eagle → egg\nwords: 3 (you 1, machine 2)")
	assert.Contains(t, got, "You win!")

	st, err := a.Results.PlayerStats(context.Background(), terminalPlayer)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Wins)
}

func TestPlay_StopAndUnknownCommand(t *testing.T) {
	a := newApp(t)
	var out bytes.Buffer
	in := strings.NewReader("/dance\n/hint\n/stop\neagle\n")

	err := play(context.Background(), a, in, &out, playOptions{Variant: "word_chain", Opening: "apple"})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "unknown command /dance")
	assert.Contains(t, got, "try: e")
	assert.Contains(t, got, "Game stopped.")
	assert.NotContains(t, got, "machine: egg", "input after /stop is ignored")
}

func TestPlay_UnknownVariant(t *testing.T) {
	a := newApp(t)
	err := play(context.Background(), a, strings.NewReader(""), &bytes.Buffer{}, playOptions{Variant: "chess"})
	assert.Error(t, err)
}
