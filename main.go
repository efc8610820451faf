package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/triodaily/go-server/internal/content"
	"github.com/triodaily/go-server/internal/daily"
	"github.com/triodaily/go-server/internal/httpserver"
	"github.com/triodaily/go-server/internal/kvstore"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	cs, err := content.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load puzzle content")
	}

	db, err := openDB(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	srv := httpserver.New(db, kvstore.NewSQLite(db), cs, daily.SystemClock{})
	port := getEnv("PORT", "5180")
	log.Info().Str("port", port).Msg("starting triodaily go-server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
