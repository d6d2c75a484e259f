package main

import (
	"context"
	"log/slog"
	"os"

	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/config"
	"blog/internal/db"
	"blog/internal/httpserver"
	"blog/internal/logging"
	"blog/internal/server"
	"blog/internal/session"
)

func main() {
	conf, err := config.New(".env")
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logging.New(os.Stdout, conf.Logging.Level, conf.Logging.Format)
	if conf.Session.Secret == config.DevSecret {
		log.Warn("using the development session secret; set SESSION_SECRET")
	}

	database, err := db.Open(conf.Database.Path)
	if err != nil {
		log.Error("open database", slog.String("path", conf.Database.Path), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	sessions := session.NewManager(database, session.Options{
		Secret:     conf.Session.Secret,
		TTL:        conf.Session.TTL,
		CookieName: conf.Session.CookieName,
		Secure:     conf.Session.CookieSecure,
	}, log)
	svc := blog.New(database, auth.DefaultHasher, log)
	handler := server.New(svc, sessions, log)

	if err := httpserver.New(conf.HTTPServer, handler, log).Run(context.Background()); err != nil {
		log.Error("http server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
