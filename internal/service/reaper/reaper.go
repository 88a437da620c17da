// Package reaper periodically removes refresh tokens that expired long ago.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/nkiryanov/taledynamic/internal/logger"
)

const (
	defaultInterval  = time.Hour
	defaultRetention = 7 * 24 * time.Hour
)

type refreshTokenRepo interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Config struct {
	// How often purge runs
	Interval time.Duration

	// Expired tokens are kept this long for audit of rotation chains
	Retention time.Duration

	Logger logger.Logger
}

type Reaper struct {
	interval  time.Duration
	retention time.Duration

	repo   refreshTokenRepo
	logger logger.Logger
	now    func() time.Time
}

func New(cfg Config, repo refreshTokenRepo) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Reaper{
		interval:  cfg.Interval,
		retention: cfg.Retention,
		repo:      repo,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Purge deletes tokens expired before now - retention
func (r *Reaper) Purge(ctx context.Context) (int64, error) {
	before := r.now().Add(-r.retention)

	deleted, err := r.repo.DeleteExpired(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired refresh tokens: %w", err)
	}
	return deleted, nil
}

// Run starts purging on schedule until ctx is done.
// Returned channel is closed when scheduler is stopped.
func (r *Reaper) Run(ctx context.Context) (<-chan struct{}, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	_, err := s.Every(r.interval).Do(func() {
		deleted, err := r.Purge(ctx)
		if err != nil {
			r.logger.Error("Refresh token purge failed", "error", err)
			return
		}
		r.logger.Info("Expired refresh tokens purged", "deleted", deleted)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule refresh token purge: %w", err)
	}

	s.StartAsync()
	r.logger.Debug("Reaper started", "interval", r.interval, "retention", r.retention)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.Stop()
		r.logger.Debug("Reaper stopped")
	}()

	return stopped, nil
}
