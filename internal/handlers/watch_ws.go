// internal/handlers/watch_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
)

// watchInterval matches the client-side poll cadence.
const watchInterval = 2 * time.Second

// WatchGameHandler upgrades the connection to a WebSocket and streams game
// state snapshots to spectators: the server re-fetches the document on the
// poll cadence and pushes it whenever the version changes. The stream closes
// itself once the game reaches its terminal state.
func (s *Server) WatchGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.URL.Query().Get("game_id")
		if gameID == "" {
			http.Error(w, "game_id is required", http.StatusBadRequest)
			return
		}

		g, err := s.Service.Get(r.Context(), gameID)
		if err != nil {
			if errors.Is(err, game.ErrGameNotFound) {
				http.Error(w, "Game not found", http.StatusNotFound)
				return
			}
			s.Log.WithError(err).Error("watch: failed to load game")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"watch"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			s.Log.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")

		ctx := c.CloseRead(context.Background())
		s.Log.Infof("spectator connected to game %s from %s", gameID, r.RemoteAddr)

		if err := wsjson.Write(ctx, c, g); err != nil {
			return
		}
		lastVersion := g.Version

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			g, err := s.Service.Get(ctx, gameID)
			if err != nil {
				s.Log.WithField("game", gameID).WithError(err).Warn("watch: re-fetch failed")
				c.Close(websocket.StatusInternalError, "game unavailable")
				return
			}
			if g.Version != lastVersion {
				if err := wsjson.Write(ctx, c, g); err != nil {
					return
				}
				lastVersion = g.Version
			}
			if g.Finished() {
				c.Close(websocket.StatusNormalClosure, "game finished")
				return
			}
		}
	}
}
