package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/taledynamic/internal/db"
	"github.com/nkiryanov/taledynamic/internal/handlers"
	"github.com/nkiryanov/taledynamic/internal/health"
	"github.com/nkiryanov/taledynamic/internal/logger"
	"github.com/nkiryanov/taledynamic/internal/repository/postgres"
	"github.com/nkiryanov/taledynamic/internal/service/auth"
	"github.com/nkiryanov/taledynamic/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/taledynamic/internal/service/reaper"
	"github.com/nkiryanov/taledynamic/internal/service/user"
	"github.com/nkiryanov/taledynamic/internal/service/workspace"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	pool   *pgxpool.Pool
	reaper *reaper.Reaper
	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Token manager first: no point to touch db with invalid secret
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	authService, err := auth.NewService(auth.Config{
		RevokeChainOnReuse: c.RevokeChainOnReuse,
		Logger:             logger,
	}, tokenManager, storage)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	userService := user.NewService(user.Config{Logger: logger}, storage)
	workspaceService := workspace.NewService(storage)
	healthService := health.NewService(health.NewPostgresChecker(pool))

	mux := handlers.NewRouter(
		authService,
		userService,
		workspaceService,
		healthService,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		pool:       pool,
		reaper: reaper.New(reaper.Config{
			Interval:  c.ReaperInterval,
			Retention: c.ReaperRetention,
			Logger:    logger,
		}, storage.Refresh()),
		logger: logger,
	}, nil
}

// Run starts http server and background jobs, closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	reaperStopped, err := s.reaper.Run(srvCtx)
	if err != nil {
		return err
	}

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err = httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-reaperStopped

	return err
}
