// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
)

// keyPrefix namespaces game documents in Redis.
const keyPrefix = "pj:game:"

// RedisStore persists game documents as JSON values in Redis. Writes are
// optimistic: the key is WATCHed, the stored version compared against the
// version the caller read, and the SET applied in a transaction so a
// concurrent writer fails the whole attempt instead of losing an update.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// ConnectRedis builds a Redis client from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

func gameKey(id string) string {
	return keyPrefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*game.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching game %s: %w", id, err)
	}
	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decoding game %s: %w", id, err)
	}
	return &g, nil
}

func (s *RedisStore) Put(ctx context.Context, g *game.Game) error {
	key := gameKey(g.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		var stored int64
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			stored = 0
		case err != nil:
			return err
		default:
			var probe struct {
				Version int64 `json:"version"`
			}
			if err := json.Unmarshal(data, &probe); err != nil {
				return err
			}
			stored = probe.Version
		}
		if stored != g.Version {
			return game.ErrVersionConflict
		}

		g.Version++
		payload, err := json.Marshal(g)
		if err != nil {
			g.Version--
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			g.Version--
		}
		return err
	}, key)

	// TxFailedErr means the WATCHed key changed under us, which is the same
	// stale-snapshot condition as a version mismatch.
	if errors.Is(err, redis.TxFailedErr) {
		return game.ErrVersionConflict
	}
	return err
}

// List scans the game keyspace and fetches every document. Finished games are
// included; documents are never deleted.
func (s *RedisStore) List(ctx context.Context) ([]*game.Game, error) {
	var games []*game.Game

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", iter.Val(), err)
		}
		var g game.Game
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", iter.Val(), err)
		}
		games = append(games, &g)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return games, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
