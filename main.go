package main

import (
	"context"
	"flag"
	"log/slog"

	"NestLink/internal/config"
	"NestLink/internal/gateway"
	"NestLink/internal/http-server/api"
	"NestLink/internal/lib/logger"
	"NestLink/internal/lib/sl"
	"NestLink/internal/lib/token"
	"NestLink/internal/session"
	"NestLink/internal/ws"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	lg.Info("starting nestlink", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	claims, err := token.ParseSession(conf.Backend.Token)
	if err != nil {
		lg.Error("session token", sl.Err(err))
		return
	}
	lg.With(
		slog.String("user", claims.UserID),
		sl.Secret("token", conf.Backend.Token),
	).Info("session identity resolved")

	gw := gateway.NewClient(conf, lg)

	hub := ws.NewHub(lg)
	go hub.Run()

	sess := session.New(conf, lg, claims, gw, hub)
	hub.SetHandler(sess)

	sess.Start(context.Background())
	defer sess.Stop()

	// *** blocking start with http server ***
	err = api.New(conf, lg, sess, hub)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}
