package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/semmidev/cloudvault/internal/app"
	"github.com/semmidev/cloudvault/internal/config"
	"github.com/semmidev/cloudvault/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	gdriveAuth := flag.Bool("gdrive-auth", false, "run the Google Drive consent flow and print a refresh token")
	authAddr := flag.String("auth-addr", ":8085", "listen address for the Google Drive consent flow")
	flag.Parse()

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *gdriveAuth {
		return runDriveConsent(ctx, cfg, *authAddr)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return application.Run(ctx)
}

func runDriveConsent(ctx context.Context, cfg *config.Config, addr string) error {
	lg, err := logger.New(cfg.App.LogLevel, "")
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer lg.Close()

	consent, err := app.NewDriveConsent(lg, cfg.Storage.OAuthClientSecret, addr)
	if err != nil {
		return fmt.Errorf("initialize drive consent: %w", err)
	}

	refresh, err := consent.Run(ctx, addr)
	if err != nil {
		return fmt.Errorf("drive consent: %w", err)
	}

	fmt.Printf("storage.oauth_refresh_token: %s\n", refresh)
	return nil
}
