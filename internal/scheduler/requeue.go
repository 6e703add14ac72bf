// Package scheduler runs the background job that re-moderates submissions
// held in pending because the classifier was unavailable at submit time.
package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/service/submission"
	"github.com/memorywall/memorywall/pkg/errors"
)

// Store is the record store slice the requeue job needs.
type Store interface {
	ListPendingUnavailable(ctx context.Context, limit int) ([]*submission.Submission, error)
	SetDecision(ctx context.Context, id string, status submission.Status, audit *submission.ModerationAudit) error
}

// Requeue re-runs moderation over stuck pending submissions.
type Requeue struct {
	store     Store
	moderator submission.Moderator
	log       *zap.Logger
	batchSize int
}

// NewRequeue wires the job.
func NewRequeue(store Store, moderator submission.Moderator, log *zap.Logger) *Requeue {
	return &Requeue{
		store:     store,
		moderator: moderator,
		log:       log.With(zap.String("module", "requeue")),
		batchSize: 50,
	}
}

// Run processes one batch. A still-unavailable classifier leaves the rows
// untouched for the next tick.
func (r *Requeue) Run(ctx context.Context) {
	pending, err := r.store.ListPendingUnavailable(ctx, r.batchSize)
	if err != nil {
		r.log.Error("requeue listing failed", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}
	r.log.Info("re-moderating pending submissions", zap.Int("count", len(pending)))

	for _, sub := range pending {
		decision, err := r.moderator.Moderate(ctx, moderationInput(sub))
		if err != nil {
			if errors.Is(err, errors.ErrModerationUnavailable) {
				r.log.Warn("classifier still unavailable, stopping batch", zap.Error(err))
				return
			}
			r.log.Error("re-moderation failed", zap.String("id", sub.ID), zap.Error(err))
			continue
		}
		status := submission.StatusApproved
		if decision.Flagged {
			status = submission.StatusRejected
		}
		audit := &submission.ModerationAudit{
			Decision:  *decision,
			DecidedBy: "requeue",
			DecidedAt: time.Now().UTC(),
		}
		if err := r.store.SetDecision(ctx, sub.ID, status, audit); err != nil {
			r.log.Error("decision write failed", zap.String("id", sub.ID), zap.Error(err))
			continue
		}
		r.log.Info("pending submission resolved",
			zap.String("id", sub.ID),
			zap.String("status", string(status)))
	}
}

// moderationInput rebuilds the classifier input exactly as the pipeline
// assembled it at submit time.
func moderationInput(sub *submission.Submission) string {
	if !sub.Kind.HasURLPayload() {
		return sub.Content
	}
	parts := []string{sub.URL}
	if sub.Metadata != nil {
		parts = append(parts, sub.Metadata.Title, sub.Metadata.Description)
	}
	return strings.Join(parts, "\n")
}

// Start schedules the job on the given cron spec and starts the scheduler.
func Start(schedule string, job *Requeue, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		job.Run(ctx)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Info("requeue scheduler started", zap.String("schedule", schedule))
	return c, nil
}
