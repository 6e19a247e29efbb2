// Command portal serves the login shell.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/sait-khanh/gate"
	"github.com/sait-khanh/gate/auth"
	"github.com/sait-khanh/gate/gatenats"
	"github.com/sait-khanh/gate/portal"
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func main() {
	addr := flag.String("addr", envOr("PORTAL_ADDR", ":3000"), "http listen address")
	endpoint := flag.String("auth-endpoint", envOr("PORTAL_AUTH_ENDPOINT", auth.DefaultEndpoint), "authentication endpoint")
	sessionDB := flag.String("session-db", envOr("PORTAL_SESSION_DB", ""), "sqlite file for sessions (in-memory when empty)")
	natsDir := flag.String("nats-dir", envOr("PORTAL_NATS_DIR", ""), "data dir for embedded NATS (disabled when empty)")
	fromToken := flag.Bool("auth-from-token", envBool("PORTAL_AUTH_FROM_TOKEN", false), "gate /login on a stored token")
	logLevel := flag.String("log-level", envOr("PORTAL_LOG_LEVEL", "info"), "debug, info, warn or error")
	dev := flag.Bool("dev", envBool("PORTAL_DEV", false), "console logging")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	app := gate.New()
	opts := gate.Options{
		DevMode:       *dev,
		ServerAddress: *addr,
		LogLevel:      &level,
		DocumentTitle: "Login",
	}

	if *sessionDB != "" {
		db, err := sql.Open("sqlite3", *sessionDB)
		if err != nil {
			logger := app.Logger()
			logger.Fatal().Err(err).Str("path", *sessionDB).Msg("open session db")
		}
		defer db.Close()
		sm, err := gate.NewSQLiteSessionManager(db, 5*time.Minute)
		if err != nil {
			logger := app.Logger()
			logger.Fatal().Err(err).Msg("session store")
		}
		opts.SessionManager = sm
	}

	cfg := portal.Config{Endpoint: *endpoint}
	if *fromToken {
		cfg.AuthState = portal.TokenAuth
	}

	if *natsDir != "" {
		ps, err := gatenats.New(context.Background(), *natsDir)
		if err != nil {
			logger := app.Logger()
			logger.Fatal().Err(err).Msg("start embedded nats")
		}
		// closed by the app on shutdown
		err = ps.EnsureStream(gatenats.StreamConfig{
			Name:     "LOGINS",
			Subjects: []string{"auth.>"},
			MaxMsgs:  1000,
			MaxAge:   24 * time.Hour,
		})
		if err != nil {
			_ = ps.Close()
			logger := app.Logger()
			logger.Fatal().Err(err).Msg("login stream")
		}
		opts.PubSub = ps
		cfg.History = ps.Replay
	}

	app.Config(opts)
	portal.Register(app, cfg)
	app.Start()
}
