package services

import (
	"context"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// ChallengeSweeper periodically purges expired challenges from stores that have
// no storage-level TTL of their own. Reads never depend on it having run.
type ChallengeSweeper struct {
	stores   map[string]ports.ChallengeStore
	clock    ports.Clock
	interval time.Duration
	logger   *logrus.Logger
}

func NewChallengeSweeper(stores map[string]ports.ChallengeStore, clock ports.Clock, interval time.Duration, logger *logrus.Logger) *ChallengeSweeper {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ChallengeSweeper{stores: stores, clock: clock, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *ChallengeSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass over every store and returns the total removed.
func (s *ChallengeSweeper) SweepOnce(ctx context.Context) int {
	total := 0
	for name, store := range s.stores {
		sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		n, err := store.DeleteExpired(sweepCtx, s.clock.Now())
		cancel()
		if err != nil {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"store": name}).WithError(err).Error("failed to sweep expired challenges")
			}
			continue
		}
		total += n
		if n > 0 && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"store": name, "removed": n}).Debug("swept expired challenges")
		}
	}
	return total
}
