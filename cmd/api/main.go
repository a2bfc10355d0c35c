package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Agafina/health-camp/internal/config"
	"github.com/Agafina/health-camp/internal/db"
	httpx "github.com/Agafina/health-camp/internal/http"
	"github.com/Agafina/health-camp/internal/messaging"
	"github.com/Agafina/health-camp/internal/patient"
	"github.com/Agafina/health-camp/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Environment == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	ctx := context.Background()

	otelCfg := telemetry.LoadConfig()
	provider, err := telemetry.InitProvider(ctx, otelCfg)
	if err != nil {
		log.Warn().Err(err).Msg("telemetry initialization failed, continuing without it")
	}
	if provider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("telemetry shutdown failed")
			}
		}()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize metrics, continuing without them")
		metrics = nil
	}

	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	catalog := patient.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = patient.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load catalog")
		}
		log.Info().Str("path", cfg.CatalogPath).Msg("loaded catalog overrides")
	}

	// A missing broker is not fatal; lifecycle events are best effort.
	var publisher messaging.PublisherInterface
	if cfg.RabbitMQURL != "" {
		p, err := messaging.NewPublisher()
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, continuing without events")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	repo := patient.NewRepository(database)
	service := patient.NewService(repo, publisher, catalog)
	handler := patient.NewHandler(service, metrics)

	router := httpx.SetupRouter(otelCfg.ServiceName, handler, metrics)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpx.CORSMiddleware(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("health-camp service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
