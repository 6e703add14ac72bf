// Package moderation decides whether submitted content may be published.
// One engine, one policy: custom rules short-circuit, then a three-tier
// threshold scheme over external classifier scores.
package moderation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/pkg/metrics"
)

// Decision is the audit record of one moderation run.
// A flagged decision means the content was rejected; an engine error is a
// different thing entirely and is never encoded as a Decision.
type Decision struct {
	Flagged        bool               `json:"flagged"`
	CategoryScores map[string]float64 `json:"categoryScores,omitempty"`
	Reason         string             `json:"reason,omitempty"`
}

// Thresholds holds the global policy boundaries. Max score at or above
// Reject rejects outright; at or below Approve approves outright; the band
// between is decided per category.
type Thresholds struct {
	Reject  float64
	Approve float64
}

// Engine runs the moderation policy.
type Engine struct {
	classifier Classifier
	rules      *Rules
	thresholds Thresholds
	log        *zap.Logger
}

// NewEngine wires the policy over a classifier and a rule set.
func NewEngine(classifier Classifier, rules *Rules, thresholds Thresholds, log *zap.Logger) *Engine {
	return &Engine{
		classifier: classifier,
		rules:      rules,
		thresholds: thresholds,
		log:        log.With(zap.String("module", "moderation")),
	}
}

// Moderate classifies content and applies the policy.
//
// Custom rules are checked first and force a rejection without consulting the
// classifier or the thresholds. Otherwise the classifier's category scores go
// through the three-tier policy. A classifier failure is returned as
// ErrModerationUnavailable, never converted into an approve or reject.
func (e *Engine) Moderate(ctx context.Context, content string) (*Decision, error) {
	if rule := e.rules.Match(content); rule != nil {
		reason := rule.Reason
		if reason == "" {
			reason = fmt.Sprintf("matched blocked pattern %q", rule.Pattern)
		}
		e.log.Info("custom rule rejection", zap.String("reason", reason))
		metrics.ModerationDecisionsTotal.WithLabelValues("reject").Inc()
		return &Decision{Flagged: true, Reason: reason}, nil
	}

	scores, err := e.classifier.Classify(ctx, content)
	if err != nil {
		metrics.ModerationDecisionsTotal.WithLabelValues("unavailable").Inc()
		return nil, err
	}

	decision := e.applyThresholds(scores)
	if decision.Flagged {
		metrics.ModerationDecisionsTotal.WithLabelValues("reject").Inc()
	} else {
		metrics.ModerationDecisionsTotal.WithLabelValues("approve").Inc()
	}
	return decision, nil
}

func (e *Engine) applyThresholds(scores map[string]float64) *Decision {
	topCategory, topScore := maxScore(scores)

	if topScore >= e.thresholds.Reject {
		return &Decision{
			Flagged:        true,
			CategoryScores: scores,
			Reason:         fmt.Sprintf("content flagged for %s (score %.2f)", topCategory, topScore),
		}
	}
	if topScore <= e.thresholds.Approve {
		return &Decision{CategoryScores: scores}
	}

	// Review band: the per-category table decides.
	for category, score := range scores {
		if threshold, ok := e.rules.CategoryThreshold(category); ok && score >= threshold {
			return &Decision{
				Flagged:        true,
				CategoryScores: scores,
				Reason:         fmt.Sprintf("content flagged for %s (score %.2f over category threshold %.2f)", category, score, threshold),
			}
		}
	}
	return &Decision{CategoryScores: scores}
}

func maxScore(scores map[string]float64) (string, float64) {
	var topCategory string
	var topScore float64
	for category, score := range scores {
		if score > topScore || topCategory == "" {
			topCategory = category
			topScore = score
		}
	}
	return topCategory, topScore
}
