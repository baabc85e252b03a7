// Package application contains the application services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/input"
)

// ErrRateLimited is returned when the sync API rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// SyncService manages periodic synchronization of configured products with
// their providers.
type SyncService struct {
	registry *RegistryService
	products []string
	window   time.Duration // how far back from now each sync looks
	interval time.Duration
	logger   *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup

	lastAPISync time.Time
	apiMutex    sync.Mutex

	syncOpMutex sync.Mutex
}

// NewSyncService creates a new sync service that periodically syncs
// products against the registry's configured providers, looking back
// window from the current time on each run.
func NewSyncService(registry *RegistryService, products []string, window, interval time.Duration, logger *slog.Logger) *SyncService {
	return &SyncService{
		registry:    registry,
		products:    products,
		window:      window,
		interval:    interval,
		logger:      logger,
		stopCh:      make(chan struct{}),
		lastAPISync: time.Now().Add(-31 * time.Second),
	}
}

// Start begins the periodic sync scheduler.
func (s *SyncService) Start(ctx context.Context) {
	s.logger.Info("starting sync service", "interval", s.interval)
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *SyncService) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.registry.SetNextSync(time.Now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync service stopped: context canceled")
			return
		case <-s.stopCh:
			s.logger.Info("sync service stopped")
			return
		case <-ticker.C:
			s.logger.Debug("scheduled sync triggered")
			s.doSync(ctx)
			s.registry.SetNextSync(time.Now().Add(s.interval))
		}
	}
}

// Stop gracefully stops the sync service.
func (s *SyncService) Stop() {
	s.logger.Info("stopping sync service")
	close(s.stopCh)
	s.wg.Wait()
}

// TriggerSync manually triggers a sync operation with rate limiting.
// Returns ErrRateLimited if called within 30 seconds of the last accepted call.
func (s *SyncService) TriggerSync(ctx context.Context) (input.SyncResult, error) {
	s.apiMutex.Lock()
	defer s.apiMutex.Unlock()

	if time.Since(s.lastAPISync) < 30*time.Second {
		return input.SyncResult{}, ErrRateLimited
	}
	s.lastAPISync = time.Now()

	return s.doSyncWithResult(ctx)
}

func (s *SyncService) timeSpan() domain.TimeRange {
	now := time.Now()
	return domain.NewTimeRange(now.Add(-s.window), now)
}

func (s *SyncService) doSync(ctx context.Context) {
	s.syncOpMutex.Lock()
	defer s.syncOpMutex.Unlock()

	stats, err := s.registry.Sync(ctx, s.products, s.timeSpan())
	if err != nil {
		s.logger.Error("sync failed", "error", err)
		return
	}
	s.logger.Info("sync completed",
		"files_found", stats.FilesFound,
		"files_downloaded", stats.FilesDownloaded,
		"granules_added", stats.GranulesAdded,
	)
}

func (s *SyncService) doSyncWithResult(ctx context.Context) (input.SyncResult, error) {
	s.syncOpMutex.Lock()
	defer s.syncOpMutex.Unlock()

	stats, err := s.registry.Sync(ctx, s.products, s.timeSpan())
	if err != nil {
		return input.SyncResult{}, err
	}

	return input.SyncResult{
		FilesFound:      stats.FilesFound,
		FilesDownloaded: stats.FilesDownloaded,
		GranulesAdded:   stats.GranulesAdded,
		SyncedAt:        time.Now(),
		NextScheduledAt: s.registry.NextSync(),
	}, nil
}

// Interval returns the sync interval.
func (s *SyncService) Interval() time.Duration {
	return s.interval
}
