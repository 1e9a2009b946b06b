package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/filevault"
	"github.com/mkravets/filevault/auth"
	"github.com/mkravets/filevault/database"
	"github.com/mkravets/filevault/filesystem"
	fvhttp "github.com/mkravets/filevault/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the file storage server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8270, "HTTP server port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg.Log.Level)

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (env: FILEVAULT_AUTH_JWT_SECRET)")
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}
	if err := db.Validate(ctx); err != nil {
		return fmt.Errorf("validate database schema: %w", err)
	}
	slog.Info("connected to database", "type", cfg.Database.Type)

	if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}
	root, err := os.OpenRoot(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage directory: %w", err)
	}
	defer func() { _ = root.Close() }()
	blobs := filesystem.NewBlobStore(root)
	slog.Info("storage ready", "path", cfg.Storage.Path)

	service, err := filevault.NewStorageService(db.Users(), db.Files(), blobs, filevault.ServiceConfig{
		CleanupTimeout: time.Duration(cfg.Service.CleanupTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create storage service: %w", err)
	}

	authService, err := auth.NewService(db.Users(), auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		TokenTTL: time.Duration(cfg.Auth.TokenTTL) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create auth service: %w", err)
	}

	handler := fvhttp.NewHandler(&fvhttp.HandlerConfig{
		MaxUploadSize: cfg.Server.MaxUploadSize,
		CORS:          cfg.CORS,
	}, service, authService)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		select {
		case s := <-sig:
			slog.Info("shutting down", "signal", s.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "err", err)
		}
	}()

	slog.Info("starting server", "addr", addr, "version", version)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
