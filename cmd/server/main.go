// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/auth"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/handlers"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/historian"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/llm"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/middleware"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/store"
)

func main() {
	auth.Init()

	logger := logrus.New()
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Session store + historian queue share one Redis client. STORE=memory
	// runs everything in-process for local play without Redis.
	var (
		gameStore game.Store
		publisher game.ActionPublisher
	)
	if os.Getenv("STORE") == "memory" {
		gameStore = store.NewMemoryStore()
		logger.Warn("using in-memory store; games will not survive a restart")
	} else {
		client, err := store.ConnectRedis()
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		gameStore = store.NewRedisStore(client)
		publisher = historian.NewQueue(client)
	}

	// LLM_API_KEY unset means canned responses, good enough for a dry run.
	var generator game.Generator
	if os.Getenv("LLM_API_KEY") != "" {
		generator = llm.NewOpenAIGeneratorFromEnv()
	} else {
		generator = &llm.StaticGenerator{}
		logger.Warn("LLM_API_KEY not set; serving canned responses")
	}

	svc := game.NewService(gameStore, generator, publisher, logger)
	srv := handlers.NewServer(svc, logger)

	logged := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()
	mux.Handle("/game/create", logged(srv.CreateGameHandler()))
	mux.Handle("/game/join", logged(srv.JoinGameHandler()))
	mux.Handle("/game/state", logged(srv.GameStateHandler()))
	mux.Handle("/games", logged(srv.ListGamesHandler()))

	mux.Handle("/game/start", logged(srv.StartGameHandler()))
	mux.Handle("/game/question/draft", logged(srv.DraftQuestionHandler()))
	mux.Handle("/game/question", logged(srv.SubmitQuestionHandler()))
	mux.Handle("/game/answer", logged(srv.SubmitAnswerHandler()))
	mux.Handle("/game/score", logged(srv.ScorePhaseHandler()))
	mux.Handle("/game/continue", logged(srv.ContinueHandler()))
	mux.Handle("/game/next-round", logged(srv.NextRoundHandler()))
	mux.Handle("/game/end", logged(srv.EndGameHandler()))

	mux.Handle("/game/ws", srv.WatchGameHandler())

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
