package core

// scheduler.go runs background maintenance for the dataset cache.
//
// Expired datasets are already recomputed on access; the janitor only frees
// the memory of entries nobody asks for again. It logs what it removed and
// stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultJanitorInterval is how often expired cache entries are purged.
const DefaultJanitorInterval = 5 * time.Minute

// StartCacheJanitor purges expired datasets every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartCacheJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	slog.Info("cache janitor started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cache janitor stopped")
			return
		case <-ticker.C:
			s.purgeExpired()
		}
	}
}

// purgeExpired performs one janitor cycle.
func (s *Service) purgeExpired() int {
	start := time.Now()
	removed := s.cache.PurgeExpired()
	if removed > 0 {
		slog.Info("purged expired datasets",
			"removed", removed,
			"remaining", s.cache.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return removed
}
