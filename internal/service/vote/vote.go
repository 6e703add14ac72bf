// Package vote maintains the per-submission vote ledger: aggregate up/down
// counters plus a per-user direction map, mutated only through the record
// store's atomic update so the counter/map invariant survives concurrency.
package vote

import (
	"context"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/internal/service/submission"
	"github.com/memorywall/memorywall/pkg/errors"
	"github.com/memorywall/memorywall/pkg/metrics"
)

// Ledger is the record store primitive: one atomic read-modify-write per
// cast. Implementations must not split it into a read followed by a save.
type Ledger interface {
	CastVote(ctx context.Context, id, userID string, direction submission.Direction) (submission.Votes, submission.Direction, error)
}

// Transition describes the effect of one cast given the caller's prior vote.
type Transition struct {
	DeltaUp   int
	DeltaDown int
	// UserVote is the caller's vote after the cast; empty means removed.
	UserVote submission.Direction
}

// Apply is the toggle/switch/undo state machine. The record store's atomic
// update implements exactly these semantics; tests hold the two together.
func Apply(prior, direction submission.Direction) Transition {
	switch {
	case prior == direction:
		// Toggle off: undo the existing vote.
		if direction == submission.VoteUp {
			return Transition{DeltaUp: -1}
		}
		return Transition{DeltaDown: -1}
	case prior == submission.VoteUp:
		return Transition{DeltaUp: -1, DeltaDown: 1, UserVote: direction}
	case prior == submission.VoteDown:
		return Transition{DeltaUp: 1, DeltaDown: -1, UserVote: direction}
	default:
		// No prior vote.
		if direction == submission.VoteUp {
			return Transition{DeltaUp: 1, UserVote: direction}
		}
		return Transition{DeltaDown: 1, UserVote: direction}
	}
}

// Result is returned to the caller after a cast.
type Result struct {
	Votes    submission.Votes     `json:"votes"`
	UserVote submission.Direction `json:"userVote,omitempty"`
}

// Service validates and applies vote casts.
type Service struct {
	ledger Ledger
	log    *zap.Logger
}

// NewService wires the vote service over the record store.
func NewService(ledger Ledger, log *zap.Logger) *Service {
	return &Service{
		ledger: ledger,
		log:    log.With(zap.String("module", "vote")),
	}
}

// maxConflictRetries bounds internal retries when the ledger reports a
// concurrent-update collision.
const maxConflictRetries = 3

// Cast applies one vote. Unknown submissions yield ErrNotFound; a direction
// outside up/down yields ErrInvalidInput.
func (s *Service) Cast(ctx context.Context, submissionID, userID string, direction submission.Direction) (*Result, error) {
	if submissionID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "missing submission id")
	}
	if userID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "missing user id")
	}
	if !direction.Valid() {
		return nil, errors.Wrap(errors.ErrInvalidInput, "direction must be up or down")
	}

	var votes submission.Votes
	var userVote submission.Direction
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		votes, userVote, err = s.ledger.CastVote(ctx, submissionID, userID, direction)
		if err == nil || !errors.Is(err, errors.ErrConflict) {
			break
		}
		s.log.Debug("vote conflict, retrying",
			zap.String("submission", submissionID),
			zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, err
	}

	transition := "cast"
	if userVote == "" {
		transition = "undo"
	}
	metrics.VotesTotal.WithLabelValues(string(direction), transition).Inc()
	return &Result{Votes: votes, UserVote: userVote}, nil
}
