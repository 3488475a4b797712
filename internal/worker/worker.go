package worker

import (
	"context"
	"log/slog"
	"time"

	"PixRelay/internal/events"
	"PixRelay/internal/models"
	"PixRelay/internal/store"
)

// SweepResult reports what one sweep pass did.
type SweepResult struct {
	Expired []string
	Removed int
}

// Sweeper expires and evicts stale ledger entries on a fixed interval.
type Sweeper struct {
	Store       *store.Ledger
	Notifier    events.Notifier
	Logger      *slog.Logger
	Lifetime    time.Duration
	ExpireAfter time.Duration
	Interval    time.Duration
	Now         func() time.Time
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Logger.Info("sweeper started", "interval", s.Interval, "lifetime", s.Lifetime, "expire_after", s.ExpireAfter)
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx, s.now())
		}
	}
}

// SweepOnce flips pending orders older than ExpireAfter to expired, then
// removes every order older than Lifetime. ExpireAfter never exceeds
// Lifetime, so an order is always observable as expired before removal.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) SweepResult {
	res := SweepResult{
		Expired: s.Store.MarkExpired(now.Add(-s.ExpireAfter), now),
	}
	for _, id := range res.Expired {
		if s.Notifier != nil {
			s.Notifier.OrderStatusChanged(ctx, id, models.OrderExpired)
		}
	}
	res.Removed = s.Store.DeleteCreatedBefore(now.Add(-s.Lifetime))

	if len(res.Expired) > 0 || res.Removed > 0 {
		s.Logger.Info("sweep", "expired", len(res.Expired), "removed", res.Removed, "remaining", s.Store.Len())
	}
	return res
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
