// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/auth"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
)

// Server bundles the game service with the pieces HTTP handlers need.
type Server struct {
	Service *game.Service
	Log     *logrus.Logger
}

func NewServer(svc *game.Service, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{Service: svc, Log: log}
}

// EnsureGuest resolves the caller's guest identity from the auth cookie, or
// mints a fresh one (and sets the cookie) when none is present or the token
// no longer verifies. name is the requested display name for fresh guests.
func EnsureGuest(w http.ResponseWriter, r *http.Request, name string) (auth.Identity, error) {
	cookieHeader := r.Header.Get("Cookie")
	if strings.Contains(cookieHeader, "auth_token=") {
		ident, err := auth.AuthenticateJWT(extractTokenFromCookie(cookieHeader))
		if err == nil {
			return ident, nil
		}
		// fall through: expired or re-keyed token, issue a fresh guest
	}

	if name == "" {
		name = "Guest"
	}
	ident := auth.Identity{ID: uuid.NewString(), Name: name}
	token, err := auth.CreateJWT(ident)
	if err != nil {
		return auth.Identity{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return ident, nil
}

// RequireGuest resolves the caller's identity from the auth cookie, failing
// when there is none. Used by action handlers where an unknown caller cannot
// be acting on their own game.
func RequireGuest(r *http.Request) (auth.Identity, error) {
	cookieHeader := r.Header.Get("Cookie")
	if !strings.Contains(cookieHeader, "auth_token=") {
		return auth.Identity{}, errors.New("missing auth_token")
	}
	return auth.AuthenticateJWT(extractTokenFromCookie(cookieHeader))
}

func extractTokenFromCookie(cookie string) string {
	parts := strings.Split(cookie, "auth_token=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeGameError maps domain errors onto HTTP responses. Out-of-order and
// duplicate actions are not mapped here; their handlers log and swallow them.
func (s *Server) writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Game not found."})
	case errors.Is(err, game.ErrGameAlreadyStarted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "Game has already started."})
	case errors.Is(err, game.ErrSetupIncomplete):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Pick a persona, an action, and at least two options per pool."})
	case errors.Is(err, game.ErrNoContestants):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "At least one contestant must join before starting."})
	case errors.Is(err, game.ErrNotHost):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Only the host may do that."})
	case errors.Is(err, game.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "The game changed underneath you; reload and retry."})
	case errors.Is(err, game.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "That action is not available right now."})
	case errors.Is(err, game.ErrPlayerNotFound):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "You are not part of this game."})
	default:
		s.Log.WithError(err).Error("unhandled game error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal error."})
	}
}
