// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/codr1/Playfield/internal/api"
	"github.com/codr1/Playfield/internal/api/bookings"
	apicatalog "github.com/codr1/Playfield/internal/api/catalog"
	"github.com/codr1/Playfield/internal/config"
)

func newServer(cfg *config.Config, manager bookings.Manager, catalogService apicatalog.Service, limiter bookings.HoldLimiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain, innermost first
	middleware := []api.Middleware{api.WithActor}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		requestLimiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		middleware = append(middleware, api.WithRateLimit(requestLimiter))
	}
	middleware = append(middleware, api.WithLogging, api.WithRecovery, api.WithRequestID)
	handler := api.ChainMiddleware(router, middleware...)

	// Register routes
	bookingHandler := bookings.NewHandler(manager, cfg.Payment.CallbackToken)
	if limiter != nil {
		bookingHandler.WithHoldLimiter(limiter, cfg.RateLimit.TrustProxy)
	}
	registerRoutes(router, bookingHandler, apicatalog.NewHandler(catalogService))

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, bookingHandler *bookings.Handler, catalogHandler *apicatalog.Handler) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	bookingHandler.Register(mux)
	catalogHandler.Register(mux)
}
