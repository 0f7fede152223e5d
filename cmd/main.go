/*
Package main is the entry point for the lab chat server.

It loads configuration, initializes logging, opens the history store, starts the chat hub and
the HTTP server, and shuts everything down in order on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labchat/internal/app/chat"
	"labchat/internal/app/history"
	"labchat/internal/app/moderation"
	"labchat/internal/app/storage"
	"labchat/internal/configs"
	"labchat/internal/handler"
	"labchat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("history_driver", cfg.HistoryDriver).
		Str("presence_identity", cfg.PresenceIdentity).
		Bool("file_sharing", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := history.Open(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open history store", "driver", cfg.HistoryDriver)
	}

	historySvc := history.NewService(store, history.Limits{
		Default: cfg.HistoryLimit,
		Max:     cfg.HistoryMaxLimit,
	}, cfg.PersistQueueSize)

	censor, err := moderation.NewCensor(cfg.BannedWords, moderation.DefaultMask)
	if err != nil {
		logx.Fatal(err, "Failed to build the banned word filter")
	}

	var storageService storage.StorageService
	if cfg.StorageEnabled() {
		storageService, err = storage.NewStorageService(storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3PublicURL:       cfg.S3PublicURL,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize file storage")
		}
	}

	hub := chat.NewHub(chat.HubConfig{
		History:           historySvc,
		Censor:            censor,
		IdentityBySession: cfg.PresenceIdentity == configs.IdentityBySession,
		HistoryLimit:      cfg.HistoryLimit,
	})

	limiters := handler.NewLimiters()
	router := handler.Router(&handler.AppDeps{
		Hub:            hub,
		History:        historySvc,
		Config:         cfg,
		StorageService: storageService,
	}, limiters)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Lab Chat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "HTTP server did not shut down cleanly")
	}

	// Connections are kicked first so no persist request races the writer shutdown.
	hub.Shutdown(shutdownCtx)
	historySvc.Close()
	limiters.Stop()

	if err := closeStore(); err != nil {
		logx.Error(err, "Failed to close history store")
	}

	logx.Info("Server gracefully stopped.")
}
