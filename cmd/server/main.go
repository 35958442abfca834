// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Playfield/internal/catalog"
	"github.com/codr1/Playfield/internal/clock"
	"github.com/codr1/Playfield/internal/config"
	"github.com/codr1/Playfield/internal/db"
	"github.com/codr1/Playfield/internal/ratelimit"
	"github.com/codr1/Playfield/internal/reservations"
	"github.com/codr1/Playfield/internal/scheduler"
)

const defaultConfigPath = "config.yaml"

func configPath() string {
	path := flag.String("config", "", "Path to the YAML configuration file")
	flag.Parse()
	if *path != "" {
		return *path
	}
	if env, ok := os.LookupEnv("CONFIG_PATH"); ok && env != "" {
		return env
	}
	return defaultConfigPath
}

func setupLogger(environment string, debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment, cfg.Features.EnableDebug)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("filename", cfg.Database.Filename).Msg("Failed to open database")
	}
	defer database.Close()

	systemClock := clock.Real()
	manager, err := reservations.NewManager(database, reservations.Config{
		HoldDuration:     cfg.Booking.HoldDuration,
		MaxOccurrences:   cfg.Booking.MaxOccurrences,
		OperationTimeout: cfg.Booking.OperationTimeout,
		PhoneRegion:      cfg.Booking.PhoneRegion,
		Clock:            systemClock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reservation manager")
	}
	catalogService := catalog.NewService(database, systemClock)

	jobs, err := scheduler.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if _, err := scheduler.RegisterExpirySweep(jobs, manager, systemClock, cfg.Booking.SweepCron); err != nil {
		log.Fatal().Err(err).Msg("Failed to register expiry sweep")
	}
	if cfg.Payment.CallbackToken == "" {
		log.Warn().Msg("PAYMENT_CALLBACK_TOKEN not set; confirmation callbacks are unauthenticated")
	}

	limiter := ratelimit.New(&ratelimit.Config{
		HoldCooldown:     cfg.RateLimit.HoldCooldown,
		HoldMaxPerHour:   cfg.RateLimit.HoldsPerHour,
		HoldMaxIPPerHour: cfg.RateLimit.HoldsPerIPPerHour,
		Clock:            systemClock,
	})
	defer limiter.Close()

	server := newServer(cfg, manager, catalogService, limiter)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	jobs.Start()
	log.Info().
		Str("sweep_cron", cfg.Booking.SweepCron).
		Dur("hold_duration", cfg.Booking.HoldDuration).
		Msg("Scheduler started")

	// Run server
	g.Go(func() error {
		log.Info().Str("port", strconv.Itoa(cfg.App.Port)).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		if err := jobs.Stop(); err != nil {
			return fmt.Errorf("scheduler shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
