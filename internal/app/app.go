// internal/app/app.go
//
// Service wiring shared by the HTTP server and the terminal client.
//
// Startup order:
//   1. Embedding index (fatal if it cannot be loaded).
//   2. Pronouncing dictionary (optional; rhyme_time is disabled without it).
//   3. Resolver chain: offline definitions file, then Merriam-Webster.
//   4. Word cache, warmed from its snapshot.
//   5. Results database (migrated).
//
// Close saves the cache snapshot best-effort and closes the database.

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlink/internal/config"
	"github.com/robalobadob/wordlink/internal/dictionary"
	"github.com/robalobadob/wordlink/internal/embeddings"
	"github.com/robalobadob/wordlink/internal/game"
	"github.com/robalobadob/wordlink/internal/phonetics"
	"github.com/robalobadob/wordlink/internal/results"
	"github.com/robalobadob/wordlink/internal/store"
)

// App holds the long-lived services.
type App struct {
	Config    config.Config
	Index     *embeddings.Index
	Phonetics *phonetics.Dict // nil when no CMU dictionary is configured
	Words     *dictionary.Cache
	Engine    *game.Engine
	Sessions  store.Store
	DB        *sql.DB
	Results   *results.Store
}

// New loads every collaborator described by cfg.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	index, err := embeddings.LoadFile(cfg.EmbeddingsFile)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	return NewWithIndex(ctx, cfg, index)
}

// NewWithIndex wires an App around an already loaded index.
func NewWithIndex(ctx context.Context, cfg config.Config, index *embeddings.Index) (*App, error) {
	a := &App{Config: cfg, Index: index, Sessions: store.NewMemoryStore()}

	if cfg.CMUDictFile != "" {
		d, err := phonetics.LoadFile(cfg.CMUDictFile)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.CMUDictFile).Msg("pronouncing dictionary unavailable; rhyme time disabled")
		} else {
			a.Phonetics = d
		}
	}

	a.Words = dictionary.NewCache(index, resolvers(cfg), cfg.CacheSize)
	if cfg.CacheSnapshot != "" {
		_, _ = a.Words.LoadSnapshot(cfg.CacheSnapshot)
	}

	opts := []game.Option{game.WithScrambleLevel(cfg.ScrambleLevel)}
	if a.Phonetics != nil {
		opts = append(opts, game.WithRhymer(a.Phonetics))
	}
	a.Engine = game.NewEngine(index, a.Words, opts...)

	db, err := results.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if err := results.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.DB = db
	a.Results = results.NewStore(db)
	return a, nil
}

func resolvers(cfg config.Config) dictionary.Resolver {
	var chain dictionary.Chain
	if cfg.DefinitionsFile != "" {
		static, err := dictionary.LoadStatic(cfg.DefinitionsFile)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.DefinitionsFile).Msg("offline definitions unavailable")
		} else {
			log.Info().Int("words", len(static)).Msg("offline definitions loaded")
			chain = append(chain, static)
		}
	}
	if cfg.MerriamWebsterKey != "" {
		chain = append(chain, dictionary.NewMerriamWebster(cfg.MerriamWebsterKey, cfg.DictionaryRPS))
	}
	if len(chain) == 0 {
		log.Warn().Msg("no dictionary configured; only snapshot words will resolve")
	}
	return chain
}

// Finish records a finished session for playerID. Failures are logged and
// swallowed; a lost result never breaks a game.
func (a *App) Finish(ctx context.Context, playerID string, s *game.Session) {
	if s.Phase != game.PhaseFinished || a.Results == nil {
		return
	}
	err := a.Results.Record(ctx, results.RoundFromSession(playerID, s))
	switch {
	case errors.Is(err, results.ErrAlreadyPlayed):
		log.Info().Str("player", playerID).Str("daily", s.Daily).Msg("daily round already recorded")
	case err != nil:
		log.Warn().Err(err).Str("session", s.ID).Msg("record round failed")
	}
}

// Prune drops finished sessions older than the configured TTL.
func (a *App) Prune(ctx context.Context) {
	if n := a.Sessions.Prune(ctx, time.Now().Add(-a.Config.SessionTTL)); n > 0 {
		log.Debug().Int("sessions", n).Msg("pruned finished sessions")
	}
}

// Close persists the word cache and releases the database. Snapshot
// failures are logged, never returned.
func (a *App) Close(ctx context.Context) error {
	if a.Config.CacheSnapshot != "" && a.Words != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := a.Words.SaveSnapshot(a.Config.CacheSnapshot); err != nil {
				log.Warn().Err(err).Msg("word cache snapshot not saved")
			}
		}()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Msg("gave up waiting for word cache snapshot")
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
