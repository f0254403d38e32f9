// internal/httpserver/routes_daily.go
//
// Daily challenge and player records.
//
//	POST /daily/new          -> start (or resume) today's game of a variant
//	GET  /daily/leaderboard  -> ranked daily rounds for today or ?date=
//	GET  /leaderboard        -> alias of /daily/leaderboard
//	GET  /stats/me           -> the caller's totals
//
// Each player can play one daily round per variant per day (enforced by the
// results database). Daily games are seeded from the date, so every player
// gets the same opening and parameters.

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordlink/internal/daily"
	"github.com/robalobadob/wordlink/internal/game"
	"github.com/robalobadob/wordlink/internal/results"
)

const leaderboardLimit = 20

func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.handleDailyNew)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Get("/stats/me", s.handleStats)
}

type dailyNewRes struct {
	Date    string      `json:"date"`
	Resumed bool        `json:"resumed"`
	Session sessionView `json:"session"`
}

func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if !decode(w, r, &req) {
		return
	}
	if req.Variant == "" {
		req.Variant = string(game.WordChain)
	}
	ctx := r.Context()
	p := currentPlayer(r)
	now := s.now()
	date := daily.DateKey(now)

	// Resume an in-progress daily game of the same variant, even if the
	// player started other games since.
	sessions, err := s.app.Sessions.List(ctx, p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, sess := range sessions {
		if sess.Phase == game.PhaseActive && sess.Daily == date && string(sess.Variant) == req.Variant {
			writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Resumed: true, Session: viewSession(sess)})
			return
		}
	}

	played, err := s.app.Results.DailyPlayed(ctx, p.ID, req.Variant, date)
	if err != nil {
		writeError(w, err)
		return
	}
	if played {
		writeError(w, results.ErrAlreadyPlayed)
		return
	}

	sess, err := s.app.Engine.Start(ctx, p.ID, game.VariantID(req.Variant), game.StartOptions{
		Seed:  daily.Seed(now, s.cfg.DailySalt, req.Variant),
		Daily: date,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.app.Sessions.Save(ctx, sess); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dailyNewRes{Date: date, Session: viewSession(sess)})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	} else if _, err := daily.ParseDateKey(date); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_date", Message: "date must be YYYY-MM-DD"})
		return
	}
	limit := leaderboardLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	rows, err := s.app.Results.Leaderboard(r.Context(), date, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []results.LBRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "rows": rows})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	p := currentPlayer(r)
	st, err := s.app.Results.PlayerStats(r.Context(), p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if st.Name == "" {
		st.Name = p.Name
	}
	writeJSON(w, http.StatusOK, st)
}
