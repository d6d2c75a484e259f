// Command seed wipes the database and loads demonstration data.
package main

import (
	"context"
	"log/slog"
	"os"

	"blog/internal/config"
	"blog/internal/db"
	"blog/internal/logging"
	"blog/internal/seed"
)

func main() {
	conf, err := config.New(".env")
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logging.New(os.Stderr, conf.Logging.Level, conf.Logging.Format)

	database, err := db.Open(conf.Database.Path)
	if err != nil {
		log.Error("open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	if err := seed.Seed(context.Background(), database); err != nil {
		log.Error("seed database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seeded the database", slog.String("path", conf.Database.Path))
}
