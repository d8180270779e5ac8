package main

import (
	"fmt"
	"os"

	"claims-service/internal/auth"
	"claims-service/internal/client"
	"claims-service/internal/config"
	"claims-service/internal/db"
	httphandler "claims-service/internal/http"
	"claims-service/internal/http/middleware"
	"claims-service/internal/live"
	"claims-service/internal/logger"
	"claims-service/internal/repository"
	"claims-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	feed := repository.NewClaimFeed()
	claimRepo := repository.NewClaimRepository(database, feed)
	technicianRepo := repository.NewTechnicianRepository(database)
	pendingRepo := repository.NewPendingUserRepository(database)
	eventRepo := repository.NewClaimEventRepository(database)

	whatsappClient := client.NewWhatsAppClient(cfg)
	pushClient := client.NewPushClient(cfg)
	dispatcher := service.NewDispatcher(whatsappClient, pushClient, appLogger)

	claimService := service.NewClaimService(claimRepo, technicianRepo, eventRepo, dispatcher, appLogger)
	technicianService := service.NewTechnicianService(technicianRepo, pendingRepo, appLogger)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	hub := live.NewHub(claimRepo, feed, tokenParser, cfg.Live.RetryBaseDelay, cfg.Live.ReconcileWindow, appLogger)

	handler := httphandler.NewHandler(claimService, technicianService, hub, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting claims service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
