package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/andenbus/reservation-payments/pkg/backend"
	"github.com/andenbus/reservation-payments/pkg/callback"
	"github.com/andenbus/reservation-payments/pkg/checkout"
	"github.com/andenbus/reservation-payments/pkg/config"
	"github.com/andenbus/reservation-payments/pkg/discount"
	"github.com/andenbus/reservation-payments/pkg/gateway"
	"github.com/andenbus/reservation-payments/pkg/handlers"
	"github.com/andenbus/reservation-payments/pkg/holdtimer"
	appmiddleware "github.com/andenbus/reservation-payments/pkg/middleware"
	"github.com/andenbus/reservation-payments/pkg/models"
	"github.com/andenbus/reservation-payments/pkg/scheduler"
	"github.com/andenbus/reservation-payments/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Session store: the one piece of state that survives a restart.
	store := session.NewStore(cfg.TokenPath, logger)

	// Backend and gateway clients.
	api := backend.NewClient(cfg.BackendBaseURL, store, logger)
	api.OnAuthExpired = store.HandleAuthFailure
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey)

	// Payment core.
	ticks := scheduler.NewTickerScheduler()
	holds := holdtimer.NewRegistry()
	discounts := discount.NewResolver(api, logger)
	broker := checkout.NewBroker(gw, cfg.ReturnBaseURL, cfg.Currency, logger)
	reconciler := callback.NewResolver(api, holds, broker, logger)

	// Clearing the session tears down everything tied to it: a hold or an
	// in-flight checkout is meaningless without a subject.
	store.OnClear(holds.CancelAll)
	store.OnClear(broker.DiscardAll)

	if store.CheckOnStartup() {
		logger.Info("stored session token was expired, cleared on startup")
	}
	go func() {
		<-store.Expired()
		logger.Info("session expired, please sign in again")
	}()

	factory := func(legs []models.Reservation) (*holdtimer.Timer, error) {
		return holdtimer.New(legs, api, ticks, logger,
			holdtimer.WithHoldDuration(time.Duration(cfg.HoldSeconds)*time.Second))
	}
	handler := handlers.NewPaymentHandler(broker, discounts, reconciler, holds, factory, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(appmiddleware.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	handler.Routes(router)

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
