// internal/game/player.go
package game

// Player is a participant in a game. The host carries IsHost=true, is excluded
// from scoring and the asker rotation, and configures rounds. Scores can go
// negative; there is no floor.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	IsHost    bool   `json:"isHost,omitempty"`
	JoinOrder int    `json:"joinOrder"`
}
