// cmd/historian/main.go is the entrypoint for the archive service: it drains
// game action records from the Redis queue and persists them to PostgreSQL.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/database"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/historian"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/store"
)

func main() {
	database.ConnectDB()
	defer database.DB.Close()

	client, err := store.ConnectRedis()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	hs := historian.NewService(client)
	go hs.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	hs.Stop()
	log.Println("Historian shutdown complete.")
}
