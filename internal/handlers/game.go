// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
)

type createGameRequest struct {
	Name string `json:"name"`
}

// CreateGameHandler mints a guest identity for the host, creates a lobby-state
// game and returns the document (its ID is the shareable join code).
func (s *Server) CreateGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "A host name is required."})
			return
		}

		ident, err := EnsureGuest(w, r, req.Name)
		if err != nil {
			s.Log.WithError(err).Error("failed to establish guest identity")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal error."})
			return
		}

		g, err := s.Service.Create(r.Context(), ident.ID, req.Name)
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

type joinGameRequest struct {
	GameID string `json:"gameId"`
	Name   string `json:"name"`
}

// JoinGameHandler joins the caller to a lobby. Unknown players are rejected
// once the game has started; known players may rejoin at any time.
func (s *Server) JoinGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" || req.Name == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "gameId and name are required."})
			return
		}

		ident, err := EnsureGuest(w, r, req.Name)
		if err != nil {
			s.Log.WithError(err).Error("failed to establish guest identity")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal error."})
			return
		}

		g, err := s.Service.Join(r.Context(), req.GameID, ident.ID, req.Name)
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// GameStateHandler serves the current document for pollers (clients re-fetch
// every couple of seconds until the game finishes).
func (s *Server) GameStateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.URL.Query().Get("game_id")
		if gameID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "game_id is required."})
			return
		}
		g, err := s.Service.Get(r.Context(), gameID)
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// ListGamesHandler returns every stored game document, the history view.
func (s *Server) ListGamesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := s.Service.List(r.Context())
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, games)
	}
}

type startGameRequest struct {
	GameID string          `json:"gameId"`
	Setup  game.RoundSetup `json:"setup"`
}

// StartGameHandler begins round 1 (host only).
func (s *Server) StartGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "gameId is required."})
			return
		}
		ident, err := RequireGuest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Missing or invalid auth token."})
			return
		}
		g, err := s.Service.Start(r.Context(), req.GameID, ident.ID, req.Setup)
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

type questionRequest struct {
	GameID   string `json:"gameId"`
	Question string `json:"question"`
}

// DraftQuestionHandler updates the asker's live question text. Out-of-turn
// edits are logged and dropped without surfacing an error; the UI disables the
// input for everyone else, so these only come from stale clients.
func (s *Server) DraftQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "gameId is required."})
			return
		}
		ident, err := RequireGuest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Missing or invalid auth token."})
			return
		}
		g, err := s.Service.SubmitDraftQuestion(r.Context(), req.GameID, ident.ID, req.Question)
		if errors.Is(err, game.ErrNotYourTurn) || errors.Is(err, game.ErrInvalidTransition) {
			s.Log.WithField("game", req.GameID).WithField("player", ident.ID).
				WithError(err).Info("ignoring out-of-turn draft")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// SubmitQuestionHandler locks the asker's final question and kicks off the
// response generation. Same silent-drop policy for out-of-turn submissions as
// the draft handler.
func (s *Server) SubmitQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "gameId is required."})
			return
		}
		ident, err := RequireGuest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Missing or invalid auth token."})
			return
		}
		g, err := s.Service.SubmitQuestion(r.Context(), req.GameID, ident.ID, req.Question)
		if errors.Is(err, game.ErrNotYourTurn) || errors.Is(err, game.ErrInvalidTransition) {
			s.Log.WithField("game", req.GameID).WithField("player", ident.ID).
				WithError(err).Info("ignoring out-of-turn question")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

type answerRequest struct {
	GameID  string `json:"gameId"`
	Persona string `json:"persona"`
	Action  string `json:"action"`
}

// SubmitAnswerHandler records a contestant's guess. A duplicate for the same
// phase is logged and dropped; the first submission stands.
func (s *Server) SubmitAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "gameId is required."})
			return
		}
		ident, err := RequireGuest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Missing or invalid auth token."})
			return
		}
		sub := game.Submission{Persona: req.Persona, Action: req.Action}
		g, err := s.Service.SubmitAnswer(r.Context(), req.GameID, ident.ID, sub)
		if errors.Is(err, game.ErrDuplicateSubmission) || errors.Is(err, game.ErrInvalidTransition) {
			s.Log.WithField("game", req.GameID).WithField("player", ident.ID).
				WithError(err).Info("ignoring answer submission")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

type gameActionRequest struct {
	GameID string `json:"gameId"`
}

// hostAction wraps the parameterless host transitions (score, continue, end).
func (s *Server) hostAction(action func(r *http.Request, gameID, playerID string) (*game.Game, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "gameId is required."})
			return
		}
		ident, err := RequireGuest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Missing or invalid auth token."})
			return
		}
		g, err := action(r, req.GameID, ident.ID)
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// ScorePhaseHandler ends the answering window and applies scores (host only).
func (s *Server) ScorePhaseHandler() http.HandlerFunc {
	return s.hostAction(func(r *http.Request, gameID, playerID string) (*game.Game, error) {
		return s.Service.ScorePhase(r.Context(), gameID, playerID)
	})
}

// ContinueHandler advances past the score display (host only).
func (s *Server) ContinueHandler() http.HandlerFunc {
	return s.hostAction(func(r *http.Request, gameID, playerID string) (*game.Game, error) {
		return s.Service.Continue(r.Context(), gameID, playerID)
	})
}

// NextRoundHandler starts the next round after one finishes (host only).
func (s *Server) NextRoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "gameId is required."})
			return
		}
		ident, err := RequireGuest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Missing or invalid auth token."})
			return
		}
		g, err := s.Service.StartNextRound(r.Context(), req.GameID, ident.ID, req.Setup)
		if err != nil {
			s.writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// EndGameHandler finishes the game (host only, terminal).
func (s *Server) EndGameHandler() http.HandlerFunc {
	return s.hostAction(func(r *http.Request, gameID, playerID string) (*game.Game, error) {
		return s.Service.End(r.Context(), gameID, playerID)
	})
}
