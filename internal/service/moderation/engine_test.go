package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/memorywall/memorywall/pkg/errors"
)

type fakeClassifier struct {
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(context.Context, string) (map[string]float64, error) {
	f.calls++
	return f.scores, f.err
}

func defaultThresholds() Thresholds {
	return Thresholds{Reject: 0.85, Approve: 0.2}
}

func newTestEngine(t *testing.T, classifier Classifier) *Engine {
	t.Helper()
	rules, err := LoadRules("", zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewEngine(classifier, rules, defaultThresholds(), zaptest.NewLogger(t))
}

func TestModerateThresholds(t *testing.T) {
	tests := []struct {
		name        string
		scores      map[string]float64
		wantFlagged bool
	}{
		{
			name:        "clean content approves",
			scores:      map[string]float64{"hate": 0.01, "spam": 0.05},
			wantFlagged: false,
		},
		{
			name:        "score at approve boundary approves",
			scores:      map[string]float64{"violence": 0.2},
			wantFlagged: false,
		},
		{
			name:        "score at reject boundary rejects",
			scores:      map[string]float64{"violence": 0.85},
			wantFlagged: true,
		},
		{
			name:        "score above reject boundary rejects",
			scores:      map[string]float64{"hate": 0.99},
			wantFlagged: true,
		},
		{
			name:        "band score over category threshold rejects",
			scores:      map[string]float64{"hate": 0.45}, // hate threshold is 0.4
			wantFlagged: true,
		},
		{
			name:        "band score under category threshold approves",
			scores:      map[string]float64{"spam": 0.5}, // spam threshold is 0.7
			wantFlagged: false,
		},
		{
			name:        "unknown category in band approves",
			scores:      map[string]float64{"novel-category": 0.5},
			wantFlagged: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, &fakeClassifier{scores: tt.scores})
			decision, err := engine.Moderate(context.Background(), "some content")
			require.NoError(t, err)
			assert.Equal(t, tt.wantFlagged, decision.Flagged)
			assert.Equal(t, tt.scores, decision.CategoryScores)
			if tt.wantFlagged {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestModerateCustomRuleShortCircuits(t *testing.T) {
	classifier := &fakeClassifier{scores: map[string]float64{"hate": 0.0}}
	rules, err := LoadRules("", zaptest.NewLogger(t))
	require.NoError(t, err)
	rules.SetForTest(&RuleSet{
		Patterns: []PatternRule{{Pattern: `(?i)forbidden`, Reason: "blocked term"}},
	})
	engine := NewEngine(classifier, rules, defaultThresholds(), zaptest.NewLogger(t))

	decision, err := engine.Moderate(context.Background(), "this is Forbidden content")
	require.NoError(t, err)
	assert.True(t, decision.Flagged)
	assert.Equal(t, "blocked term", decision.Reason)
	assert.Zero(t, classifier.calls, "classifier must not be consulted on a rule match")

	decision, err = engine.Moderate(context.Background(), "harmless content")
	require.NoError(t, err)
	assert.False(t, decision.Flagged)
	assert.Equal(t, 1, classifier.calls)
}

func TestModerateClassifierFailure(t *testing.T) {
	classifier := &fakeClassifier{err: errors.Wrap(errors.ErrModerationUnavailable, "connection refused")}
	engine := newTestEngine(t, classifier)

	decision, err := engine.Moderate(context.Background(), "anything")
	require.Error(t, err)
	assert.Nil(t, decision, "failure must never produce a decision")
	assert.ErrorIs(t, err, errors.ErrModerationUnavailable)
}

func TestMaxScore(t *testing.T) {
	category, score := maxScore(map[string]float64{"hate": 0.1, "spam": 0.7, "violence": 0.3})
	assert.Equal(t, "spam", category)
	assert.InDelta(t, 0.7, score, 1e-9)

	category, score = maxScore(nil)
	assert.Empty(t, category)
	assert.Zero(t, score)
}
