// Command authapi runs the development authentication service the login
// shell posts to.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/sait-khanh/gate/internal/authapi"
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func main() {
	addr := flag.String("addr", envOr("AUTHAPI_ADDR", ":8080"), "http listen address")
	dbPath := flag.String("db", envOr("AUTHAPI_DB", "authapi.db"), "sqlite database file")
	secret := flag.String("jwt-secret", envOr("AUTHAPI_JWT_SECRET", ""), "HMAC secret for signing tokens")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("svc", "authapi").Logger()

	if *secret == "" {
		logger.Fatal().Msg("jwt secret is required (-jwt-secret or AUTHAPI_JWT_SECRET)")
	}

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *dbPath).Msg("open db")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users := authapi.NewSQLUserStore(db)
	if err := users.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           authapi.NewServer(users, authapi.NewTokenService(*secret, 24*time.Hour), authapi.Passwords{}, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info().Str("addr", *addr).Msg("authapi started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
