// internal/httpserver/auth.go
//
// Player identity.
//
// Players are anonymous until they ask for a token. POST /auth/token signs a
// JWT for the caller's current ID (so anonymous history carries over) and a
// display name. Tokens are read from "Authorization: Bearer" or the auth
// cookie; without one, a long-lived anonymous cookie identifies the player.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const anonCookieName = "wordlink_anon"

// player is placed into the request context by withPlayer.
type player struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Anon bool   `json:"anonymous"`
}

type ctxPlayerKey struct{}

func currentPlayer(r *http.Request) *player {
	p, _ := r.Context().Value(ctxPlayerKey{}).(*player)
	return p
}

type playerClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

func (s *Server) mountAuth(r chi.Router) {
	r.Post("/auth/token", s.handleToken)
	r.Post("/auth/logout", s.handleLogout)
	r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, currentPlayer(r))
	})
}

// withPlayer resolves the caller from a token or the anonymous cookie.
// It never rejects a request.
func (s *Server) withPlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := s.playerFromToken(bearerOrCookie(r, s.cfg.CookieName))
		if p == nil {
			p = &player{ID: s.ensureAnonID(w, r), Anon: true}
		}
		ctx := context.WithValue(r.Context(), ctxPlayerKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) playerFromToken(tok string) *player {
	if tok == "" {
		return nil
	}
	claims := &playerClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid || claims.Subject == "" {
		log.Debug().Err(err).Msg("ignoring invalid token")
		return nil
	}
	return &player{ID: claims.Subject, Name: claims.Name}
}

type tokenReq struct {
	Name string `json:"name"`
}

type tokenRes struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Player    player    `json:"player"`
}

// handleToken names the current player and issues a signed token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if !decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_name", Message: err.Error()})
		return
	}

	p := currentPlayer(r)
	if err := s.app.Results.UpsertPlayer(r.Context(), p.ID, name); err != nil {
		writeError(w, err)
		return
	}
	tok, exp, err := s.signJWT(p.ID, name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "sign_failed"})
		return
	}
	s.setCookie(w, s.cfg.CookieName, tok, exp)
	writeJSON(w, http.StatusOK, tokenRes{Token: tok, ExpiresAt: exp, Player: player{ID: p.ID, Name: name}})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, s.cfg.CookieName, "", time.Time{})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// validateName enforces 1-24 printable characters.
func validateName(n string) error {
	if c := utf8.RuneCountInString(n); c < 1 || c > 24 {
		return errors.New("name must be 1-24 characters")
	}
	for _, r := range n {
		if r < ' ' {
			return errors.New("name contains control characters")
		}
	}
	return nil
}

// signJWT creates an HS256 token for id with the configured expiry.
func (s *Server) signJWT(id, name string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(time.Duration(s.cfg.JWTExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, playerClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	s.setCookie(w, anonCookieName, id, s.now().Add(180*24*time.Hour))
	return id
}

// setCookie writes an HttpOnly cookie; a zero expiry deletes it.
func (s *Server) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.SecureCookies {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: sameSite,
		Expires:  exp,
	}
	if exp.IsZero() {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// bearerOrCookie extracts a bearer token from the Authorization header or the auth cookie.
func bearerOrCookie(r *http.Request, cookie string) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookie); err == nil {
		return c.Value
	}
	return ""
}
