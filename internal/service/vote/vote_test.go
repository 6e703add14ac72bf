package vote

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/memorywall/memorywall/internal/service/submission"
	"github.com/memorywall/memorywall/pkg/errors"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name      string
		prior     submission.Direction
		direction submission.Direction
		want      Transition
	}{
		{
			name:      "fresh upvote",
			direction: submission.VoteUp,
			want:      Transition{DeltaUp: 1, UserVote: submission.VoteUp},
		},
		{
			name:      "fresh downvote",
			direction: submission.VoteDown,
			want:      Transition{DeltaDown: 1, UserVote: submission.VoteDown},
		},
		{
			name:      "toggle off upvote",
			prior:     submission.VoteUp,
			direction: submission.VoteUp,
			want:      Transition{DeltaUp: -1},
		},
		{
			name:      "toggle off downvote",
			prior:     submission.VoteDown,
			direction: submission.VoteDown,
			want:      Transition{DeltaDown: -1},
		},
		{
			name:      "switch up to down",
			prior:     submission.VoteUp,
			direction: submission.VoteDown,
			want:      Transition{DeltaUp: -1, DeltaDown: 1, UserVote: submission.VoteDown},
		},
		{
			name:      "switch down to up",
			prior:     submission.VoteDown,
			direction: submission.VoteUp,
			want:      Transition{DeltaUp: 1, DeltaDown: -1, UserVote: submission.VoteUp},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.prior, tt.direction))
		})
	}
}

// memLedger mirrors the record store's atomic update in memory so sequences
// of casts can be checked against the counter/map invariant.
type memLedger struct {
	mu    sync.Mutex
	votes submission.Votes
	users map[string]submission.Direction
}

func newMemLedger() *memLedger {
	return &memLedger{users: make(map[string]submission.Direction)}
}

func (l *memLedger) CastVote(_ context.Context, id, userID string, direction submission.Direction) (submission.Votes, submission.Direction, error) {
	if id == "missing" {
		return submission.Votes{}, "", errors.ErrNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	tr := Apply(l.users[userID], direction)
	l.votes.Up += tr.DeltaUp
	l.votes.Down += tr.DeltaDown
	if tr.UserVote == "" {
		delete(l.users, userID)
	} else {
		l.users[userID] = tr.UserVote
	}
	return l.votes, tr.UserVote, nil
}

// invariant: counters equal the tallies of the per-user map.
func (l *memLedger) check(t *testing.T) {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	var up, down int
	for _, d := range l.users {
		switch d {
		case submission.VoteUp:
			up++
		case submission.VoteDown:
			down++
		}
	}
	assert.Equal(t, up, l.votes.Up, "up counter must match user map")
	assert.Equal(t, down, l.votes.Down, "down counter must match user map")
}

func TestCastSequences(t *testing.T) {
	tests := []struct {
		name     string
		casts    []submission.Direction
		wantUp   int
		wantDown int
		wantUser submission.Direction
	}{
		{"single up", []submission.Direction{submission.VoteUp}, 1, 0, submission.VoteUp},
		{"up then toggle off", []submission.Direction{submission.VoteUp, submission.VoteUp}, 0, 0, ""},
		{"up then switch down", []submission.Direction{submission.VoteUp, submission.VoteDown}, 0, 1, submission.VoteDown},
		{"down switch up toggle off", []submission.Direction{submission.VoteDown, submission.VoteUp, submission.VoteUp}, 0, 0, ""},
		{"triple toggle lands on vote", []submission.Direction{submission.VoteUp, submission.VoteUp, submission.VoteUp}, 1, 0, submission.VoteUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newMemLedger()
			svc := NewService(ledger, zaptest.NewLogger(t))

			var result *Result
			var err error
			for _, d := range tt.casts {
				result, err = svc.Cast(context.Background(), "sub-1", "user-1", d)
				require.NoError(t, err)
				ledger.check(t)
			}
			assert.Equal(t, tt.wantUp, result.Votes.Up)
			assert.Equal(t, tt.wantDown, result.Votes.Down)
			assert.Equal(t, tt.wantUser, result.UserVote)
		})
	}
}

func TestCastConcurrentUsers(t *testing.T) {
	ledger := newMemLedger()
	svc := NewService(ledger, zaptest.NewLogger(t))

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			direction := submission.VoteUp
			if n%2 == 1 {
				direction = submission.VoteDown
			}
			userID := string(rune('a'+n%26)) + string(rune('0'+n/26))
			_, err := svc.Cast(context.Background(), "sub-1", userID, direction)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	ledger.check(t)
}

func TestCastValidation(t *testing.T) {
	svc := NewService(newMemLedger(), zaptest.NewLogger(t))

	tests := []struct {
		name         string
		submissionID string
		userID       string
		direction    submission.Direction
		wantErr      error
	}{
		{"missing submission id", "", "user-1", submission.VoteUp, errors.ErrInvalidInput},
		{"missing user id", "sub-1", "", submission.VoteUp, errors.ErrInvalidInput},
		{"bad direction", "sub-1", "user-1", "sideways", errors.ErrInvalidInput},
		{"unknown submission", "missing", "user-1", submission.VoteUp, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Cast(context.Background(), tt.submissionID, tt.userID, tt.direction)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCastRetriesOnConflict(t *testing.T) {
	ledger := &conflictLedger{failures: 2, inner: newMemLedger()}
	svc := NewService(ledger, zaptest.NewLogger(t))

	result, err := svc.Cast(context.Background(), "sub-1", "user-1", submission.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Votes.Up)
	assert.Equal(t, 3, ledger.calls)
}

type conflictLedger struct {
	failures int
	calls    int
	inner    *memLedger
}

func (l *conflictLedger) CastVote(ctx context.Context, id, userID string, direction submission.Direction) (submission.Votes, submission.Direction, error) {
	l.calls++
	if l.calls <= l.failures {
		return submission.Votes{}, "", errors.ErrConflict
	}
	return l.inner.CastVote(ctx, id, userID, direction)
}
