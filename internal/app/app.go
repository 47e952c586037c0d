package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/semmidev/cloudvault/internal/adapter/compressor"
	"github.com/semmidev/cloudvault/internal/adapter/handler"
	"github.com/semmidev/cloudvault/internal/adapter/history"
	"github.com/semmidev/cloudvault/internal/adapter/notifier"
	"github.com/semmidev/cloudvault/internal/adapter/storage"
	"github.com/semmidev/cloudvault/internal/config"
	"github.com/semmidev/cloudvault/internal/domain"
	"github.com/semmidev/cloudvault/internal/infrastructure/logger"
	"github.com/semmidev/cloudvault/internal/infrastructure/scheduler"
	"github.com/semmidev/cloudvault/internal/usecase"
)

type App struct {
	config      *config.Config
	logger      *logger.Logger
	scheduler   *scheduler.Scheduler
	server      *http.Server
	retentionUC *usecase.Retention
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return newApp(ctx, cfg, log)
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	log.Infof("Starting %s", cfg.App.Name)

	stor, err := initializeStorage(ctx, &cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	ledger := history.NewMemory()
	notifiers := initializeNotifiers(cfg, log)

	filesUC := usecase.NewFiles(stor, ledger, notifiers, log.Named("files"))
	historyUC := usecase.NewHistory(ledger, log.Named("history"))

	router := handler.NewRouter(
		handler.NewFileHandler(filesUC, log.Named("http"), cfg.MaxUploadBytes()),
		handler.NewHistoryHandler(historyUC, log.Named("http")),
		log.Named("access"),
		handler.RouterConfig{AllowedOrigins: cfg.Server.AllowedOrigins},
	)

	server := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sched := scheduler.New(func(spec string, err error) {
		log.Errorf("Scheduled job %q failed: %v", spec, err)
	})

	var retentionUC *usecase.Retention
	if cfg.History.RetentionDays > 0 {
		retentionUC = usecase.NewRetention(ledger, log.Named("retention"), cfg.History.RetentionDays)
	}

	return &App{
		config:      cfg,
		logger:      log,
		scheduler:   sched,
		server:      server,
		retentionUC: retentionUC,
	}, nil
}

func initializeStorage(ctx context.Context, cfg *config.StorageConfig, log *logger.Logger) (domain.Storage, error) {
	var (
		stor domain.Storage
		err  error
	)

	switch cfg.Type {
	case "s3":
		stor, err = storage.NewS3(ctx, cfg)
		if err == nil {
			log.Infof("✓ S3 storage enabled (bucket: %s)", cfg.Bucket)
		}
	case "minio":
		stor, err = storage.NewMinio(ctx, cfg)
		if err == nil {
			log.Infof("✓ MinIO storage enabled (endpoint: %s, bucket: %s)", cfg.Endpoint, cfg.Bucket)
		}
	case "gdrive":
		stor, err = storage.NewGDrive(ctx, cfg)
		if err == nil {
			log.Infof("✓ Google Drive storage enabled (folder: %s)", cfg.FolderID)
		}
	case "local":
		stor, err = storage.NewLocal(cfg.LocalPath)
		if err == nil {
			log.Infof("✓ Local storage enabled (path: %s)", cfg.LocalPath)
		}
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Type, err)
	}

	if cfg.Compress {
		log.Infof("✓ Transparent gzip compression enabled")
		stor = storage.NewCompressed(stor, compressor.NewGzip())
	}

	return stor, nil
}

// A notifier that fails to start is logged and skipped; it never blocks the
// service from coming up.
func initializeNotifiers(cfg *config.Config, log *logger.Logger) []usecase.NotifyTarget {
	var targets []usecase.NotifyTarget

	if cfg.Notify.Telegram.Enabled {
		tg, err := notifier.NewTelegram(&cfg.Notify.Telegram)
		if err != nil {
			log.Errorf("Failed to initialize Telegram: %v", err)
		} else {
			targets = append(targets, usecase.NotifyTarget{Name: "telegram", Notifier: tg})
			log.Infof("✓ Telegram notifications enabled")
		}
	}

	return targets
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves the API until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	if a.retentionUC != nil {
		schedule := a.config.History.CleanupSchedule
		a.logger.Infof("Scheduling history cleanup: %s (retention %d days)",
			schedule, a.config.History.RetentionDays)

		if err := a.scheduler.AddJob(schedule, a.retentionUC.Execute); err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to schedule history cleanup: %w", err)
		}
	}

	a.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("Server listening on %s", ln.Addr())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Infof("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	a.logger.Infof("Server stopped")
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.scheduler.Stop()
	a.logger.Close()
}
