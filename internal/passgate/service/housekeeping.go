package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/passgate/passgate/internal/passgate/session"
	"github.com/passgate/passgate/pkg/clockx"
)

// HousekeepingService periodically removes expired OTP records and idle
// sessions so neither map grows without bound. It runs independently of
// request handling; failures are logged and never reach a user.
type HousekeepingService struct {
	Registry *RegistryService
	Sessions *session.Manager
	Logger   *slog.Logger
	Interval time.Duration
	Clock    clockx.Clock

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 minute (the OTP
// window, so an orphaned record lingers at most one extra window).
func NewHousekeepingService(registry *RegistryService, sessions *session.Manager, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Minute
	}

	return &HousekeepingService{
		Registry: registry,
		Sessions: sessions,
		Logger:   logger,
		Interval: interval,
		Clock:    clockx.New(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking. Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup sweeps expired OTP records and prunes idle sessions. The two are
// independent; a failure in one does not stop the other.
func (s *HousekeepingService) Cleanup() {
	ctx := context.Background()
	now := s.Clock.Now()

	swept, err := s.Registry.Sweep(ctx, now)
	if err != nil {
		s.Logger.Error("failed to sweep expired otp records", "error", err)
	} else {
		s.Logger.Info("swept expired otp records", "removed", swept)
	}

	pruned := s.Sessions.PruneIdle(now)
	s.Logger.Info("pruned idle sessions", "removed", pruned)
}
