// internal/httpserver/routes_games.go
//
// Game routes:
//
//	GET  /variants             -> playable variants
//	POST /games                -> start a game {variant, opening?}
//	GET  /games/{id}           -> session view
//	POST /games/{id}/moves     -> play a word {word}
//	POST /games/{id}/hint      -> suggest a word (session unchanged)
//	POST /games/{id}/skip      -> machine plays in the player's place
//	POST /games/{id}/stop      -> finish the game
//
// Every mutating route runs inside store.Update, so moves on one session are
// serialised. Finished sessions are recorded to the results database.

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordlink/internal/dictionary"
	"github.com/robalobadob/wordlink/internal/game"
)

func (s *Server) mountGames(r chi.Router) {
	r.Post("/games", s.handleStart)
	r.Route("/games/{id}", func(r chi.Router) {
		r.Get("/", s.handleGet)
		r.Post("/moves", s.handleMove)
		r.Post("/hint", s.handleHint)
		r.Post("/skip", s.handleSkip)
		r.Post("/stop", s.handleStop)
	})
}

// constraintsView renders runes as strings for JSON clients.
type constraintsView struct {
	StartingChar    string   `json:"startingChar,omitempty"`
	ForbiddenChars  []string `json:"forbiddenChars,omitempty"`
	MinSharedChars  int      `json:"minSharedChars,omitempty"`
	RequiredLength  int      `json:"requiredLength,omitempty"`
	RhymeWith       string   `json:"rhymeWith,omitempty"`
	SimilarityFloor float64  `json:"similarityFloor,omitempty"`
	Prompt          string   `json:"prompt"`
}

func viewConstraints(c game.Constraints) constraintsView {
	v := constraintsView{
		MinSharedChars:  c.MinSharedChars,
		RequiredLength:  c.RequiredLength,
		RhymeWith:       c.RhymeWith,
		SimilarityFloor: c.SimilarityFloor,
		Prompt:          c.Describe(),
	}
	if c.StartingChar != 0 {
		v.StartingChar = string(c.StartingChar)
	}
	for _, r := range c.ForbiddenChars {
		v.ForbiddenChars = append(v.ForbiddenChars, string(r))
	}
	return v
}

type sessionView struct {
	ID          string                `json:"id"`
	Variant     game.VariantID        `json:"variant"`
	Chain       []dictionary.WordInfo `json:"chain"`
	Constraints constraintsView       `json:"constraints"`
	Phase       game.Phase            `json:"phase"`
	Outcome     game.Outcome          `json:"outcome,omitempty"`
	Score       game.Score            `json:"score"`
	Skips       int                   `json:"skips"`
	Daily       string                `json:"daily,omitempty"`
	StartedAt   time.Time             `json:"startedAt"`
	FinishedAt  *time.Time            `json:"finishedAt,omitempty"`
}

func viewSession(sess *game.Session) sessionView {
	v := sessionView{
		ID:          sess.ID,
		Variant:     sess.Variant,
		Chain:       append([]dictionary.WordInfo(nil), sess.Chain...),
		Constraints: viewConstraints(sess.Constraints),
		Phase:       sess.Phase,
		Outcome:     sess.Outcome,
		Score:       sess.Score(),
		Skips:       sess.Skips,
		Daily:       sess.Daily,
		StartedAt:   sess.StartedAt,
	}
	if !sess.FinishedAt.IsZero() {
		t := sess.FinishedAt
		v.FinishedAt = &t
	}
	return v
}

// moveView is the response to moves and skips.
type moveView struct {
	Human    *dictionary.WordInfo `json:"human,omitempty"`
	Machine  *dictionary.WordInfo `json:"machine,omitempty"`
	Finished bool                 `json:"finished"`
	Outcome  game.Outcome         `json:"outcome,omitempty"`
	Session  sessionView          `json:"session"`
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Engine.Variants())
}

type startReq struct {
	Variant string `json:"variant"`
	Opening string `json:"opening,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if !decode(w, r, &req) {
		return
	}
	if req.Variant == "" {
		req.Variant = string(game.WordChain)
	}
	p := currentPlayer(r)
	sess, err := s.app.Engine.Start(r.Context(), p.ID, game.VariantID(req.Variant), game.StartOptions{Opening: req.Opening})
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.app.Sessions.Save(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewSession(sess))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil && sess.ChatID != currentPlayer(r).ID {
		err = errForbidden
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSession(sess))
}

// update runs fn on the caller's own session and records the round if fn
// finished it.
func (s *Server) update(r *http.Request, fn func(ctx context.Context, sess *game.Session) error) (sessionView, error) {
	p := currentPlayer(r)
	var view sessionView
	err := s.app.Sessions.Update(r.Context(), chi.URLParam(r, "id"), func(sess *game.Session) error {
		if sess.ChatID != p.ID {
			return errForbidden
		}
		wasActive := sess.Phase == game.PhaseActive
		err := fn(r.Context(), sess)
		if wasActive && sess.Phase == game.PhaseFinished {
			s.app.Finish(context.WithoutCancel(r.Context()), p.ID, sess)
		}
		view = viewSession(sess)
		return err
	})
	return view, err
}

type moveReq struct {
	Word string `json:"word"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveReq
	if !decode(w, r, &req) {
		return
	}
	var res game.Result
	view, err := s.update(r, func(ctx context.Context, sess *game.Session) error {
		var err error
		res, err = s.app.Engine.Play(ctx, sess, req.Word)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moveView{
		Human: res.Human, Machine: res.Machine,
		Finished: res.Finished, Outcome: res.Outcome, Session: view,
	})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var res game.Result
	view, err := s.update(r, func(ctx context.Context, sess *game.Session) error {
		var err error
		res, err = s.app.Engine.Skip(ctx, sess)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moveView{
		Machine: res.Machine, Finished: res.Finished, Outcome: res.Outcome, Session: view,
	})
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	var hint string
	_, err := s.update(r, func(ctx context.Context, sess *game.Session) error {
		var err error
		hint, err = s.app.Engine.Hint(ctx, sess)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hint": hint})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	view, err := s.update(r, func(_ context.Context, sess *game.Session) error {
		s.app.Engine.Stop(sess)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
