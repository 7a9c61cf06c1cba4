// internal/historian/service.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/database"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/store"
)

// Service drains action records from the Redis queue and persists them to
// PostgreSQL in batches. It also watches per-game activity and marks games
// abandoned after a configurable quiet period, since the live store never
// deletes documents and the state machine has no timeout of its own.
type Service struct {
	redisClient  *redis.Client
	liveStore    *store.RedisStore
	queueName    string
	batchSize    int
	flushDelay   time.Duration
	inactivity   time.Duration // duration until a game is marked "abandoned"
	lastActivity sync.Map      // map[string]time.Time per game ID

	batchMu  sync.Mutex
	batch    []game.ActionRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewService constructs a Service instance from environment variables or defaults.
func NewService(redisClient *redis.Client) *Service {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 3600) // default 1h

	queueName := os.Getenv("HISTORIAN_QUEUE_NAME")
	if queueName == "" {
		queueName = DefaultQueueName
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		redisClient: redisClient,
		liveStore:   store.NewRedisStore(redisClient),
		queueName:   queueName,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]game.ActionRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run starts the two main loops: the queue reader with periodic batch
// flushing, and the inactivity sweep. Blocks until Stop is called.
func (hs *Service) Run() {
	go hs.readQueueLoop()
	go hs.inactivityLoop()

	log.Println("historian service started.")
	<-hs.ctx.Done()
	hs.flushBatchToDB()
	log.Println("historian shutting down.")
}

// Stop gracefully stops the service, flushing any buffered records.
func (hs *Service) Stop() {
	hs.cancelFn()
}

// readQueueLoop continuously uses BLPop to retrieve records from the Redis queue.
func (hs *Service) readQueueLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// BLPop with a short timeout so context cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, hs.queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if hs.ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var rec game.ActionRecord
			if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
				log.Printf("invalid action record: %v\n", err)
				continue
			}

			hs.lastActivity.Store(rec.GameID, time.Now())
			if rec.ActionType == "game_end" {
				hs.lastActivity.Delete(rec.GameID)
			}

			hs.appendToBatch(rec)
		}
	}
}

// appendToBatch adds a record to the in-memory batch and flushes if the threshold is reached.
func (hs *Service) appendToBatch(rec game.ActionRecord) {
	hs.batchMu.Lock()
	flush := false
	hs.batch = append(hs.batch, rec)
	if len(hs.batch) >= hs.batchSize {
		flush = true
	}
	hs.batchMu.Unlock()

	if flush {
		hs.flushBatchToDB()
	}
}

// flushBatchToDB writes the buffered records in a single transaction, then
// finalizes any games whose end was part of the batch.
func (hs *Service) flushBatchToDB() {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return
	}
	batchCopy := make([]game.ActionRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]
	hs.batchMu.Unlock()

	ctx := context.Background()
	if err := database.InsertGameActions(ctx, batchCopy); err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
		return
	}

	for _, rec := range batchCopy {
		if rec.ActionType != "game_end" {
			continue
		}
		hs.finalizeGame(ctx, rec.GameID)
	}
	log.Printf("Flushed %d actions to DB.\n", len(batchCopy))
}

// finalizeGame archives the finished game document alongside its status. The
// live store keeps the document regardless; the archive copy lets the history
// view survive a Redis flush.
func (hs *Service) finalizeGame(ctx context.Context, gameID string) {
	g, err := hs.liveStore.Get(ctx, gameID)
	if err != nil {
		log.Printf("cannot archive final state of game %s: %v", gameID, err)
		if err := database.SetGameStatus(ctx, gameID, "finished"); err != nil {
			log.Printf("failed to finalize game %s: %v", gameID, err)
		}
		return
	}
	if err := database.StoreFinalGameState(ctx, g); err != nil {
		log.Printf("failed to archive game %s: %v", gameID, err)
	}
}

// inactivityLoop periodically marks long-quiet games abandoned.
func (hs *Service) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			hs.lastActivity.Range(func(key, val interface{}) bool {
				gameID, ok1 := key.(string)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > hs.inactivity {
					if err := database.SetGameStatus(context.Background(), gameID, "abandoned"); err != nil {
						log.Printf("failed to mark game %s abandoned: %v", gameID, err)
					} else {
						log.Printf("Marked game %s as 'abandoned' due to inactivity.", gameID)
					}
					hs.lastActivity.Delete(gameID)
				}
				return true
			})
		}
	}
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
