// Package submission implements the ingestion pipeline: validate, resolve
// metadata, moderate, persist. The caller gets the final status back, not a
// placeholder, except when moderation is unavailable and the row is held in
// pending for the background job.
package submission

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/resolver"
	"github.com/memorywall/memorywall/internal/service/moderation"
	"github.com/memorywall/memorywall/internal/service/stats"
	"github.com/memorywall/memorywall/pkg/errors"
	"github.com/memorywall/memorywall/pkg/metrics"
	"github.com/memorywall/memorywall/pkg/redis"
)

// MetadataResolver resolves URL metadata. Total: never fails, degrades.
type MetadataResolver interface {
	Resolve(ctx context.Context, rawURL string) *resolver.Metadata
}

// Moderator decides whether content may be published.
type Moderator interface {
	Moderate(ctx context.Context, content string) (*moderation.Decision, error)
}

// Store is the record store slice the pipeline needs.
type Store interface {
	Insert(ctx context.Context, s *Submission) (*Submission, error)
	GetByID(ctx context.Context, id string) (*Submission, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Submission, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	SetDecision(ctx context.Context, id string, status Status, audit *ModerationAudit) error
	RefreshMetadata(ctx context.Context, id string, metadata *resolver.Metadata) error
}

// SubmitRequest is the validated input to the pipeline.
type SubmitRequest struct {
	Kind    Kind
	URL     string
	Content string
	Tags    []string
	UserID  string
}

// Service orchestrates the submission pipeline.
type Service struct {
	store       Store
	resolver    MetadataResolver
	moderator   Moderator
	cache       *redis.Cache
	weeklyLimit int
	log         *zap.Logger
	now         func() time.Time
}

// NewService wires the pipeline. The cache is optional; a nil cache disables
// gallery caching. A zero weeklyLimit disables server-side quota enforcement.
func NewService(store Store, res MetadataResolver, mod Moderator, cache *redis.Cache, weeklyLimit int, log *zap.Logger) *Service {
	return &Service{
		store:       store,
		resolver:    res,
		moderator:   mod,
		cache:       cache,
		weeklyLimit: weeklyLimit,
		log:         log.With(zap.String("module", "submission")),
		now:         time.Now,
	}
}

// Submit runs the full pipeline. Sequential and synchronous: metadata
// resolution completes (or degrades) before moderation, since the resolved
// title and description are part of the moderation input for URL kinds.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	if s.weeklyLimit > 0 {
		count, err := s.store.CountSince(ctx, stats.WeekStart(s.now()))
		if err != nil {
			return nil, errors.LogWithError(ctx, s.log, "weekly count failed", err)
		}
		if count >= s.weeklyLimit {
			return nil, errors.ErrWeeklyLimitReached
		}
	}

	sub := &Submission{
		ID:          uuid.NewString(),
		Kind:        req.Kind,
		Tags:        req.Tags,
		SubmittedBy: req.UserID,
	}

	var moderationInput string
	if req.Kind.HasURLPayload() {
		sub.URL = req.URL
		sub.Metadata = s.resolver.Resolve(ctx, req.URL)
		// URL + resolved title + description carries richer signal than
		// the bare URL.
		moderationInput = strings.Join([]string{req.URL, sub.Metadata.Title, sub.Metadata.Description}, "\n")
	} else {
		sub.Content = req.Content
		moderationInput = req.Content
	}

	decision, err := s.moderator.Moderate(ctx, moderationInput)
	switch {
	case err == nil && decision.Flagged:
		sub.Status = StatusRejected
		sub.Moderation = &ModerationAudit{Decision: *decision, DecidedBy: "auto", DecidedAt: s.now().UTC()}
	case err == nil:
		sub.Status = StatusApproved
		sub.Moderation = &ModerationAudit{Decision: *decision, DecidedBy: "auto", DecidedAt: s.now().UTC()}
	case errors.Is(err, errors.ErrModerationUnavailable):
		// Persist anyway for audit; the requeue job resolves it later.
		s.log.Warn("moderation unavailable, holding submission pending",
			zap.String("id", sub.ID), zap.Error(err))
		sub.Status = StatusPending
		sub.Moderation = &ModerationAudit{Unavailable: true, Error: err.Error(), DecidedAt: s.now().UTC()}
	default:
		return nil, err
	}

	stored, err := s.store.Insert(ctx, sub)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "persist submission failed", err,
			zap.String("id", sub.ID))
	}
	metrics.SubmissionsTotal.WithLabelValues(string(stored.Status)).Inc()
	s.invalidateGallery(ctx)
	return stored, nil
}

// Get fetches one submission.
func (s *Service) Get(ctx context.Context, id string) (*Submission, error) {
	return s.store.GetByID(ctx, id)
}

// galleryTTL bounds staleness of the cached approved list.
const galleryTTL = 30 * time.Second

// ListApproved returns approved submissions newest first, via the cache when
// available. Cache entries are keyed by limit so a small page never serves a
// larger request.
func (s *Service) ListApproved(ctx context.Context, limit int) ([]*Submission, error) {
	key := fmt.Sprintf("approved:%d", limit)
	if s.cache != nil {
		var cached []*Submission
		if err := s.cache.Get(ctx, "gallery", key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.Warn("gallery cache read failed", zap.Error(err))
		}
	}
	results, err := s.store.ListByStatus(ctx, StatusApproved, limit)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "gallery listing failed", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, "gallery", key, results, galleryTTL); err != nil {
			s.log.Warn("gallery cache write failed", zap.Error(err))
		}
	}
	return results, nil
}

// Moderate applies a manual admin decision, overriding any prior status.
func (s *Service) Moderate(ctx context.Context, id string, approve bool, actor, reason string) (*Submission, error) {
	status := StatusRejected
	if approve {
		status = StatusApproved
	}
	if reason == "" {
		reason = "manual decision"
	}
	audit := &ModerationAudit{
		Decision:  moderation.Decision{Flagged: !approve, Reason: reason},
		DecidedBy: actor,
		DecidedAt: s.now().UTC(),
	}
	if err := s.store.SetDecision(ctx, id, status, audit); err != nil {
		return nil, err
	}
	s.invalidateGallery(ctx)
	return s.store.GetByID(ctx, id)
}

// RefetchMetadata re-resolves and replaces a submission's metadata. Admin
// action; the only mutation of metadata after creation.
func (s *Service) RefetchMetadata(ctx context.Context, id string) (*Submission, error) {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.Kind.HasURLPayload() {
		return nil, errors.Wrap(errors.ErrInvalidInput, "text submissions carry no URL metadata")
	}
	meta := s.resolver.Resolve(ctx, sub.URL)
	if err := s.store.RefreshMetadata(ctx, id, meta); err != nil {
		return nil, err
	}
	s.invalidateGallery(ctx)
	return s.store.GetByID(ctx, id)
}

func (s *Service) invalidateGallery(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, "gallery", "*"); err != nil {
		s.log.Warn("gallery cache invalidation failed", zap.Error(err))
	}
}

// validate enforces the submission constraints before any external call.
func validate(req *SubmitRequest) error {
	if !ValidKinds[req.Kind] {
		return errors.Wrap(errors.ErrInvalidInput, "unknown kind")
	}
	if req.Kind.HasURLPayload() {
		if strings.TrimSpace(req.Content) != "" {
			return errors.Wrap(errors.ErrInvalidInput, "url submissions must not carry inline content")
		}
		u, err := url.Parse(strings.TrimSpace(req.URL))
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.Wrap(errors.ErrInvalidInput, "url must be an absolute http(s) URL")
		}
		req.URL = u.String()
	} else {
		if req.URL != "" {
			return errors.Wrap(errors.ErrInvalidInput, "text submissions must not carry a url")
		}
		if strings.TrimSpace(req.Content) == "" {
			return errors.Wrap(errors.ErrInvalidInput, "content must not be empty")
		}
	}
	req.Tags = dedupeTags(req.Tags)
	return nil
}

// dedupeTags trims, drops empties, and deduplicates. Order is irrelevant;
// sorted for stable storage.
func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
