// Package stats computes the rolling weekly submission window. The window is
// anchored to Monday 00:00 UTC, matching the reset shown in the gallery.
package stats

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Counter is the slice of the record store the stats service needs.
type Counter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// WeeklyStats is the advisory quota snapshot served to clients.
type WeeklyStats struct {
	SubmissionsThisWeek int       `json:"submissionsThisWeek"`
	WeeklyLimit         int       `json:"weeklyLimit"`
	NextReset           time.Time `json:"nextResetTimestamp"`
}

// WeekStart returns the Monday 00:00 UTC boundary at or before t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := t.Truncate(24 * time.Hour)
	// Weekday is Sunday=0; shift so Monday opens the week.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// NextReset returns the start of the following week.
func NextReset(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 7)
}

// Service serves weekly stats over the record store.
type Service struct {
	counter     Counter
	weeklyLimit int
	log         *zap.Logger
	now         func() time.Time
}

// NewService wires the stats service. A zero weeklyLimit means unlimited.
func NewService(counter Counter, weeklyLimit int, log *zap.Logger) *Service {
	return &Service{
		counter:     counter,
		weeklyLimit: weeklyLimit,
		log:         log.With(zap.String("module", "stats")),
		now:         time.Now,
	}
}

// Weekly computes the current window's stats.
func (s *Service) Weekly(ctx context.Context) (*WeeklyStats, error) {
	now := s.now()
	count, err := s.counter.CountSince(ctx, WeekStart(now))
	if err != nil {
		return nil, err
	}
	return &WeeklyStats{
		SubmissionsThisWeek: count,
		WeeklyLimit:         s.weeklyLimit,
		NextReset:           NextReset(now),
	}, nil
}
