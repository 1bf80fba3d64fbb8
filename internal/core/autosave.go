package core

// autosave.go runs the periodic background save.
//
// Each dataset generation gets its own task. Loading a new file or
// restoring a saved state announces a new generation, which cancels the
// previous task before the next one starts; a save already in flight for the
// old generation finds the generation changed and is dropped. Failed saves
// are logged and retried on the next tick.

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/JonMunkholm/labreport/internal/logging"
	"github.com/google/uuid"
)

// StartAutosaveScheduler runs until ctx is cancelled.
func (s *Service) StartAutosaveScheduler(ctx context.Context, interval time.Duration) {
	slog.Info("autosave scheduler started", "interval", interval)

	var (
		stopTask context.CancelFunc
		taskDone chan struct{}
	)
	stop := func() {
		if stopTask != nil {
			stopTask()
			<-taskDone
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			slog.Info("autosave scheduler stopped")
			return
		case gen := <-s.generations:
			stop()
			var taskCtx context.Context
			taskCtx, stopTask = context.WithCancel(ctx)
			taskDone = make(chan struct{})
			go func(done chan struct{}) {
				defer close(done)
				s.runAutosaveTask(taskCtx, gen, interval)
			}(taskDone)
		}
	}
}

// runAutosaveTask saves the session of gen every interval.
func (s *Service) runAutosaveTask(ctx context.Context, gen uuid.UUID, interval time.Duration) {
	logger := logging.WithFields(ctx, "generation", gen)
	logger.Debug("autosave task started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("autosave task stopped")
			return
		case <-ticker.C:
			start := time.Now()
			err := s.saveGeneration(ctx, gen)
			switch {
			case err == nil:
				logger.Info("autosave completed",
					"duration_ms", time.Since(start).Milliseconds(),
				)
			case errors.Is(err, ErrStaleGeneration):
				logger.Debug("autosave task superseded")
				return
			case errors.Is(err, context.Canceled):
				return
			default:
				logger.Warn("autosave failed, retrying next interval",
					"error", err,
				)
			}
		}
	}
}
