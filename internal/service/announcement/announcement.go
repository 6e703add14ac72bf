// Package announcement serves the administrative broadcast message shown at
// the top of the gallery.
package announcement

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memorywall/memorywall/pkg/errors"
	"github.com/memorywall/memorywall/pkg/redis"
)

// Store is the persistence slice the service needs.
type Store interface {
	Insert(ctx context.Context, a *Announcement) error
	GetActive(ctx context.Context) (*Announcement, error)
	Deactivate(ctx context.Context, id string) error
}

// Service manages announcements, caching the active one.
type Service struct {
	store Store
	cache *redis.Cache
	log   *zap.Logger
}

// NewService wires the announcement service. Cache is optional.
func NewService(store Store, cache *redis.Cache, log *zap.Logger) *Service {
	return &Service{
		store: store,
		cache: cache,
		log:   log.With(zap.String("module", "announcement")),
	}
}

const activeTTL = time.Minute

// Create stores a new announcement.
func (s *Service) Create(ctx context.Context, message string, active bool) (*Announcement, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "message must not be empty")
	}
	a := &Announcement{
		ID:      uuid.NewString(),
		Message: message,
		Active:  active,
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return a, nil
}

// Active returns the current active announcement, or ErrNotFound when none.
func (s *Service) Active(ctx context.Context) (*Announcement, error) {
	if s.cache != nil {
		var cached Announcement
		if err := s.cache.Get(ctx, "announcement", "active", &cached); err == nil && cached.ID != "" {
			return &cached, nil
		}
	}
	a, err := s.store.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, "announcement", "active", a, activeTTL); err != nil {
			s.log.Warn("announcement cache write failed", zap.Error(err))
		}
	}
	return a, nil
}

// Deactivate clears an announcement's active flag.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if err := s.store.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "announcement", "active"); err != nil {
		s.log.Warn("announcement cache invalidation failed", zap.Error(err))
	}
}
