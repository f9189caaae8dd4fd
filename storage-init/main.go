package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"join-board/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tables := []string{envOr("TASKS_TABLE", "JoinTasks"), envOr("CONTACTS_TABLE", "JoinContacts")}
	if err := storage.CreateTables(ctx, connStr, tables); err != nil {
		log.Fatalf("create tables: %v", err)
	}
	log.WithField("tables", tables).Debug("tables ready")

	if queue := os.Getenv("CHANGE_QUEUE"); queue != "" {
		if err := storage.CreateQueues(ctx, connStr, []string{queue}); err != nil {
			log.Fatalf("create queues: %v", err)
		}
		log.WithField("queue", queue).Debug("queue ready")
	}

	log.Info("storage init complete")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
