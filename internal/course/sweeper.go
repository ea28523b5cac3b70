package course

import (
	"context"
	"time"

	"wildenergy/internal/logger"
)

// Sweeper periodically advances instance lifecycle statuses.
type Sweeper struct {
	repo     Repository
	interval time.Duration
}

func NewSweeper(repo Repository, interval time.Duration) *Sweeper {
	return &Sweeper{repo: repo, interval: interval}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			started, completed, err := s.repo.SweepStatuses(ctx, time.Now())
			if err != nil {
				logger.Error("Course status sweep failed", "error", err)
				continue
			}
			if started > 0 || completed > 0 {
				logger.Info("Course status sweep",
					"started", started,
					"completed", completed,
				)
			}
		}
	}
}
