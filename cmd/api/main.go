package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/andresuchdata/shelfstock/internal/app"
	"github.com/andresuchdata/shelfstock/internal/config"
	"github.com/andresuchdata/shelfstock/internal/drive"
	"github.com/andresuchdata/shelfstock/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Configure(os.Stdout, cfg.App.LogFormat, zerolog.InfoLevel)
	logger.SetLevel(cfg.App.LogLevel)

	ctx := context.Background()

	// Initialize Google Drive service
	driveService, err := drive.NewServiceFromFile(ctx, cfg.Drive.CredentialsFile)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	ingestService := drive.NewIngestService(driveService, application.StockTargets, application.Replenishment, cfg.Drive.DownloadDir)

	// Create router
	r := mux.NewRouter()

	// Register routes
	driveHandler := drive.NewHandler(driveService, driveService, ingestService, cfg.Drive.FolderID)
	driveHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info().Str("addr", addr).Msg("Drive API starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("Drive API stopped")
	}
}
