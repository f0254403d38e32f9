// internal/httpserver/server.go
//
// HTTP transport for the word association engine.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/variants", "/words/{word}".
//   - Game endpoints (optional auth): /games/*, /daily/new.
//   - Player endpoints: /auth/token, /auth/logout, /stats/me, /leaderboard.
//   - Mapping of move rejections onto HTTP status codes.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Every request runs as a player: the JWT subject when a valid token is
//     present, otherwise a stable anonymous cookie ID.
//   - A session can only be driven by the player who started it.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlink/internal/app"
	"github.com/robalobadob/wordlink/internal/config"
	"github.com/robalobadob/wordlink/internal/dictionary"
	"github.com/robalobadob/wordlink/internal/game"
	"github.com/robalobadob/wordlink/internal/results"
	"github.com/robalobadob/wordlink/internal/store"
)

// Server bundles the router and the application services.
type Server struct {
	r   *chi.Mux
	app *app.App
	cfg config.Config
	now func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(a *app.App) *Server {
	s := &Server{r: chi.NewRouter(), app: a, cfg: a.Config, now: time.Now}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // one zerolog line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(15 * time.Second)) // bound handler time, dictionary calls included
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "wordlink",
			"endpoints": []string{"/health", "/variants", "POST /games", "POST /daily/new", "/words/{word}", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/debug/cache", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"cache":      s.app.Words.Stats(),
			"embeddings": map[string]int{"words": s.app.Index.Len(), "dim": s.app.Index.Dim()},
		})
	})

	s.r.Get("/variants", s.handleVariants)
	s.r.Get("/words/{word}", s.handleWord)

	s.r.Group(func(r chi.Router) {
		r.Use(s.withPlayer)
		s.mountGames(r)
		s.mountDaily(r)
		s.mountAuth(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return s
}

// Handler exposes the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("req_id", chimw.GetReqID(r.Context())).
			Msg("http")
	})
}

// ------------------------------ responses ----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var errForbidden = errors.New("session belongs to another player")

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var me *game.MoveError
	switch {
	case errors.As(err, &me):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: string(me.Kind), Message: err.Error()})
	case errors.Is(err, errForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden", Message: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
	case errors.Is(err, game.ErrFinished):
		writeJSON(w, http.StatusConflict, errorBody{Error: "finished", Message: err.Error()})
	case errors.Is(err, results.ErrAlreadyPlayed):
		writeJSON(w, http.StatusConflict, errorBody{Error: "already_played", Message: err.Error()})
	case errors.Is(err, game.ErrUnknownVariant), errors.Is(err, game.ErrUnavailable):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_variant", Message: err.Error()})
	case errors.Is(err, dictionary.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
	case errors.Is(err, dictionary.ErrLookupFailed):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "lookup_failed", Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "timeout"})
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_json", Message: err.Error()})
		return false
	}
	return true
}

// ------------------------------ dictionary ---------------------------------

func (s *Server) handleWord(w http.ResponseWriter, r *http.Request) {
	info, err := s.app.Words.Resolve(r.Context(), chi.URLParam(r, "word"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
