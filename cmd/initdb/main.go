// Command initdb creates any missing tables. Existing data is kept.
package main

import (
	"log/slog"
	"os"

	"blog/internal/config"
	"blog/internal/db"
	"blog/internal/logging"
)

func main() {
	conf, err := config.New(".env")
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logging.New(os.Stderr, conf.Logging.Level, conf.Logging.Format)

	// Open applies pending migrations.
	database, err := db.Open(conf.Database.Path)
	if err != nil {
		log.Error("initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()
	log.Info("initialized the database", slog.String("path", conf.Database.Path))
}
