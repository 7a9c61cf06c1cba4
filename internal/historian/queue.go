// internal/historian/queue.go
package historian

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
)

// DefaultQueueName is the Redis list (queue) name for game action records.
const DefaultQueueName = "pj_actions"

// Queue publishes game action records to a Redis list for the historian
// service to drain. It satisfies game.ActionPublisher.
type Queue struct {
	client *redis.Client
	name   string
}

// NewQueue wraps a Redis client. The queue name comes from
// HISTORIAN_QUEUE_NAME (default "pj_actions").
func NewQueue(client *redis.Client) *Queue {
	name := os.Getenv("HISTORIAN_QUEUE_NAME")
	if name == "" {
		name = DefaultQueueName
	}
	return &Queue{client: client, name: name}
}

// Publish serializes the record and pushes it onto the queue. This does not
// block the calling logic beyond a quick network send.
func (q *Queue) Publish(ctx context.Context, rec game.ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal action record: %w", err)
	}
	if err := q.client.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}
