package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/qr-service/internal/config"
	"github.com/vadimbarashkov/qr-service/internal/database/memory"
	"github.com/vadimbarashkov/qr-service/internal/database/postgres"
	"github.com/vadimbarashkov/qr-service/internal/probe"
	"github.com/vadimbarashkov/qr-service/internal/qrcode"
	"github.com/vadimbarashkov/qr-service/internal/safebrowsing"
	"github.com/vadimbarashkov/qr-service/internal/service"
	"golang.org/x/sync/errgroup"

	api "github.com/vadimbarashkov/qr-service/internal/api/http"
)

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	repo, closeRepo, err := newRepository(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closeRepo()

	level, err := qrcode.ParseRecoveryLevel(cfg.QRCode.RecoveryLevel)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	svc := service.NewQRService(
		repo,
		safebrowsing.NewClient(
			cfg.SafeBrowsing.APIKey,
			safebrowsing.WithEndpoint(cfg.SafeBrowsing.Endpoint),
			safebrowsing.WithTimeout(cfg.SafeBrowsing.Timeout),
			safebrowsing.WithClientInfo(cfg.SafeBrowsing.ClientID, cfg.SafeBrowsing.ClientVersion),
		),
		probe.New(probe.WithTimeout(cfg.Probe.Timeout)),
		qrcode.NewEncoder(qrcode.WithSize(cfg.QRCode.Size), qrcode.WithRecoveryLevel(level)),
	)

	router := api.NewRouter(logger, svc, api.WithAllowedOrigins(cfg.CORS.AllowedOrigins...))

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped")

	return nil
}

func newLogger(cfg *config.Config) (*httplog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	return httplog.NewLogger("qr-service", httplog.Options{
		LogLevel: level,
		JSON:     cfg.Log.JSON,
		Concise:  cfg.Log.Concise,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	}), nil
}

// newRepository opens the configured store. The returned func releases it.
func newRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.QRCodeRepository, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage, records will not survive a restart")
		return memory.NewQRCodeRepository(), func() {}, nil
	case config.StorageDriverPostgres:
		db, err := postgres.New(
			ctx,
			cfg.Postgres.DSN(),
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := postgres.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("database migrations applied")

		return postgres.NewQRCodeRepository(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
