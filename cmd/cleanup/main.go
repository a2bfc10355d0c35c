package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Agafina/health-camp/internal/config"
	"github.com/Agafina/health-camp/internal/db"
	"github.com/Agafina/health-camp/internal/patient"
)

// Purges patient records that have been soft-deleted longer than the
// retention window. Run as a cron job alongside the API.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	_ = godotenv.Load()

	cfg := config.Load()
	cutoff := time.Now().Add(-cfg.Retention)

	log.Info().
		Dur("retention", cfg.Retention).
		Time("cutoff", cutoff).
		Msg("patient cleanup job starting")

	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	repo := patient.NewRepository(database)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	count, err := repo.CountExpiredDeleted(ctx, cutoff)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count expired records")
	}
	if count == 0 {
		log.Info().Msg("no expired records, nothing to do")
		return
	}
	log.Info().Int("count", count).Msg("found expired soft-deleted records")

	expired, err := repo.ExpiredDeleted(ctx, cutoff)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list expired records")
	}

	purged := 0
	for i := range expired {
		rec := &expired[i]
		if err := repo.PermanentDelete(ctx, rec.ID); err != nil {
			log.Error().Err(err).Str("patient_id", rec.ID).Msg("failed to purge record")
			continue
		}
		purged++
	}

	log.Info().Int("purged", purged).Int("eligible", count).Msg("cleanup job finished")
}
