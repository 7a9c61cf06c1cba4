// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
)

// InsertGameActions persists a batch of action records inside one transaction.
// The game row is upserted first so the foreign key always resolves.
func InsertGameActions(ctx context.Context, records []game.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			upsertGame := `
				INSERT INTO games (id, status)
				VALUES ($1, 'active')
				ON CONFLICT (id) DO NOTHING
			`
			if _, err := tx.Exec(ctx, upsertGame, rec.GameID); err != nil {
				return fmt.Errorf("upsert game %s: %w", rec.GameID, err)
			}

			payload, err := json.Marshal(rec.Payload)
			if err != nil {
				return fmt.Errorf("marshal payload for game %s: %w", rec.GameID, err)
			}
			insertAction := `
				INSERT INTO game_actions (game_id, actor_id, action_type, action_payload, occurred_at)
				VALUES ($1, $2, $3, $4, to_timestamp($5::double precision / 1000))
			`
			if _, err := tx.Exec(ctx, insertAction,
				rec.GameID, rec.ActorID, rec.ActionType, payload, rec.Timestamp); err != nil {
				return fmt.Errorf("insert action for game %s: %w", rec.GameID, err)
			}
		}
		return nil
	})
}

// SetGameStatus updates the archived status of a game (e.g. "finished",
// "abandoned").
func SetGameStatus(ctx context.Context, gameID, status string) error {
	q := `
		INSERT INTO games (id, status)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET status = $2
	`
	_, err := DB.Exec(ctx, q, gameID, status)
	if err != nil {
		return fmt.Errorf("set status %q for game %s: %w", status, gameID, err)
	}
	return nil
}

// StoreFinalGameState saves the whole finished game document on the games row
// so the archive can serve replays without touching the live store.
func StoreFinalGameState(ctx context.Context, g *game.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal final state for game %s: %w", g.ID, err)
	}
	q := `
		INSERT INTO games (id, status, final_state)
		VALUES ($1, 'finished', $2)
		ON CONFLICT (id) DO UPDATE SET status = 'finished', final_state = $2
	`
	_, err = DB.Exec(ctx, q, g.ID, data)
	if err != nil {
		return fmt.Errorf("store final state for game %s: %w", g.ID, err)
	}
	return nil
}
