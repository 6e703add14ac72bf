package moderation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/memorywall/memorywall/pkg/errors"
	"github.com/memorywall/memorywall/pkg/json"
)

// Classifier scores content against a fixed category set. Scores are in [0,1].
type Classifier interface {
	Classify(ctx context.Context, content string) (map[string]float64, error)
}

// HTTPClassifier calls an OpenAI-compatible moderation endpoint.
// Transient failures are retried with exponential backoff; sustained failure
// trips a circuit breaker so a dead classifier does not stall every
// submission for the full timeout.
type HTTPClassifier struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

// ClassifierConfig configures the external classification client.
type ClassifierConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// NewHTTPClassifier builds a classifier client from configuration.
func NewHTTPClassifier(cfg ClassifierConfig, log *zap.Logger) *HTTPClassifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &HTTPClassifier{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "classifier",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("classifier breaker state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		log: log.With(zap.String("module", "classifier")),
	}
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// Classify posts the content and returns per-category scores.
// All failure modes surface as ErrModerationUnavailable; the caller decides
// whether to hold the submission in pending.
func (c *HTTPClassifier) Classify(ctx context.Context, content string) (map[string]float64, error) {
	if c.apiKey == "" || c.endpoint == "" {
		return nil, errors.Wrap(errors.ErrModerationUnavailable, "classifier misconfigured")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var scores map[string]float64
		retry := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
		err := backoff.Retry(func() error {
			var err error
			scores, err = c.classifyOnce(ctx, content)
			return err
		}, retry)
		return scores, err
	})
	if err != nil {
		c.log.Error("classification call failed", zap.Error(err))
		return nil, errors.Wrap(errors.ErrModerationUnavailable, err.Error())
	}
	scores, ok := result.(map[string]float64)
	if !ok || scores == nil {
		return nil, errors.Wrap(errors.ErrModerationUnavailable, "malformed classifier result")
	}
	return scores, nil
}

func (c *HTTPClassifier) classifyOnce(ctx context.Context, content string) (map[string]float64, error) {
	body, err := json.Marshal(moderationRequest{Input: content})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal moderation payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/moderations", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("classifier error %s", resp.Status)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, backoff.Permanent(fmt.Errorf("classifier error %s: %s", resp.Status, strings.TrimSpace(string(payload))))
	}

	var parsed moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode classifier response: %w", err))
	}
	if len(parsed.Results) == 0 || parsed.Results[0].CategoryScores == nil {
		return nil, backoff.Permanent(fmt.Errorf("classifier response missing results"))
	}
	return parsed.Results[0].CategoryScores, nil
}
