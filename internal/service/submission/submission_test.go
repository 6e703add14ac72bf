package submission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/memorywall/memorywall/internal/resolver"
	"github.com/memorywall/memorywall/internal/service/moderation"
	"github.com/memorywall/memorywall/pkg/errors"
)

type fakeStore struct {
	inserted  *Submission
	byID      map[string]*Submission
	count     int
	decisions []Status
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[string]*Submission)}
}

func (s *fakeStore) Insert(_ context.Context, sub *Submission) (*Submission, error) {
	now := time.Now().UTC()
	sub.SubmittedAt = now
	sub.CreatedAt = now
	sub.UpdatedAt = now
	s.inserted = sub
	s.byID[sub.ID] = sub
	return sub, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*Submission, error) {
	sub, ok := s.byID[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return sub, nil
}

func (s *fakeStore) ListByStatus(_ context.Context, status Status, _ int) ([]*Submission, error) {
	var out []*Submission
	for _, sub := range s.byID {
		if sub.Status == status {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeStore) CountSince(context.Context, time.Time) (int, error) {
	return s.count, nil
}

func (s *fakeStore) SetDecision(_ context.Context, id string, status Status, audit *ModerationAudit) error {
	sub, ok := s.byID[id]
	if !ok {
		return errors.ErrNotFound
	}
	sub.Status = status
	sub.Moderation = audit
	s.decisions = append(s.decisions, status)
	return nil
}

func (s *fakeStore) RefreshMetadata(_ context.Context, id string, metadata *resolver.Metadata) error {
	sub, ok := s.byID[id]
	if !ok {
		return errors.ErrNotFound
	}
	sub.Metadata = metadata
	return nil
}

type fakeResolver struct {
	meta  *resolver.Metadata
	calls int
}

func (r *fakeResolver) Resolve(_ context.Context, rawURL string) *resolver.Metadata {
	r.calls++
	if r.meta != nil {
		return r.meta
	}
	return resolver.Degraded(rawURL)
}

type fakeModerator struct {
	decision *moderation.Decision
	err      error
	inputs   []string
}

func (m *fakeModerator) Moderate(_ context.Context, content string) (*moderation.Decision, error) {
	m.inputs = append(m.inputs, content)
	return m.decision, m.err
}

func newTestService(t *testing.T, store Store, res MetadataResolver, mod Moderator, weeklyLimit int) *Service {
	t.Helper()
	return NewService(store, res, mod, nil, weeklyLimit, zaptest.NewLogger(t))
}

func TestSubmitApproved(t *testing.T) {
	store := newFakeStore()
	res := &fakeResolver{meta: &resolver.Metadata{Title: "A Title", Description: "A description"}}
	mod := &fakeModerator{decision: &moderation.Decision{CategoryScores: map[string]float64{"hate": 0.01}}}
	svc := newTestService(t, store, res, mod, 0)

	sub, err := svc.Submit(context.Background(), SubmitRequest{
		Kind:   KindURL,
		URL:    "https://example.com/page",
		Tags:   []string{"music", " music ", "", "art"},
		UserID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, sub.Status)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, []string{"art", "music"}, sub.Tags)
	require.NotNil(t, sub.Moderation)
	assert.Equal(t, "auto", sub.Moderation.DecidedBy)
	assert.Equal(t, 1, res.calls)

	// Resolved metadata enriches the moderation input.
	require.Len(t, mod.inputs, 1)
	assert.Contains(t, mod.inputs[0], "https://example.com/page")
	assert.Contains(t, mod.inputs[0], "A Title")
	assert.Contains(t, mod.inputs[0], "A description")
}

func TestSubmitRejected(t *testing.T) {
	store := newFakeStore()
	mod := &fakeModerator{decision: &moderation.Decision{Flagged: true, Reason: "content flagged for hate (score 0.95)"}}
	svc := newTestService(t, store, &fakeResolver{}, mod, 0)

	sub, err := svc.Submit(context.Background(), SubmitRequest{Kind: KindText, Content: "bad words"})
	require.NoError(t, err, "a rejection is a stored outcome, not an error")
	assert.Equal(t, StatusRejected, sub.Status)
	assert.Equal(t, "content flagged for hate (score 0.95)", sub.Moderation.Reason)
	assert.NotNil(t, store.inserted, "rejected submissions persist for audit")
}

func TestSubmitModerationUnavailable(t *testing.T) {
	store := newFakeStore()
	mod := &fakeModerator{err: errors.Wrap(errors.ErrModerationUnavailable, "circuit open")}
	svc := newTestService(t, store, &fakeResolver{}, mod, 0)

	sub, err := svc.Submit(context.Background(), SubmitRequest{Kind: KindText, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	require.NotNil(t, sub.Moderation)
	assert.True(t, sub.Moderation.Unavailable)
	assert.NotEmpty(t, sub.Moderation.Error)
}

func TestSubmitTextSkipsResolver(t *testing.T) {
	res := &fakeResolver{}
	mod := &fakeModerator{decision: &moderation.Decision{}}
	svc := newTestService(t, newFakeStore(), res, mod, 0)

	_, err := svc.Submit(context.Background(), SubmitRequest{Kind: KindText, Content: "just words"})
	require.NoError(t, err)
	assert.Zero(t, res.calls)
	require.Len(t, mod.inputs, 1)
	assert.Equal(t, "just words", mod.inputs[0])
}

func TestSubmitWeeklyLimit(t *testing.T) {
	store := newFakeStore()
	store.count = 5
	svc := newTestService(t, store, &fakeResolver{}, &fakeModerator{decision: &moderation.Decision{}}, 5)

	_, err := svc.Submit(context.Background(), SubmitRequest{Kind: KindText, Content: "over quota"})
	assert.ErrorIs(t, err, errors.ErrWeeklyLimitReached)

	store.count = 4
	_, err = svc.Submit(context.Background(), SubmitRequest{Kind: KindText, Content: "under quota"})
	assert.NoError(t, err)
}

func TestSubmitValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeResolver{}, &fakeModerator{decision: &moderation.Decision{}}, 0)

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"unknown kind", SubmitRequest{Kind: "carrier-pigeon", URL: "https://example.com"}},
		{"relative url", SubmitRequest{Kind: KindURL, URL: "/relative/path"}},
		{"bad scheme", SubmitRequest{Kind: KindURL, URL: "ftp://example.com/file"}},
		{"missing url", SubmitRequest{Kind: KindVideo}},
		{"url kind with content", SubmitRequest{Kind: KindURL, URL: "https://example.com", Content: "extra"}},
		{"text with url", SubmitRequest{Kind: KindText, Content: "words", URL: "https://example.com"}},
		{"empty text", SubmitRequest{Kind: KindText, Content: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
			assert.Nil(t, store.inserted, "invalid submissions must create nothing")
		})
	}
}

func TestModerateOverride(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeResolver{}, &fakeModerator{decision: &moderation.Decision{Flagged: true, Reason: "auto reject"}}, 0)

	sub, err := svc.Submit(context.Background(), SubmitRequest{Kind: KindText, Content: "borderline"})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, sub.Status)

	overridden, err := svc.Moderate(context.Background(), sub.ID, true, "admin", "false positive")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, overridden.Status)
	assert.Equal(t, "admin", overridden.Moderation.DecidedBy)
	assert.Equal(t, "false positive", overridden.Moderation.Reason)

	_, err = svc.Moderate(context.Background(), "no-such-id", true, "admin", "")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRefetchMetadata(t *testing.T) {
	store := newFakeStore()
	res := &fakeResolver{meta: &resolver.Metadata{Title: "old"}}
	svc := newTestService(t, store, res, &fakeModerator{decision: &moderation.Decision{}}, 0)

	sub, err := svc.Submit(context.Background(), SubmitRequest{Kind: KindURL, URL: "https://example.com"})
	require.NoError(t, err)

	res.meta = &resolver.Metadata{Title: "new"}
	refreshed, err := svc.RefetchMetadata(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", refreshed.Metadata.Title)

	text, err := svc.Submit(context.Background(), SubmitRequest{Kind: KindText, Content: "no url here"})
	require.NoError(t, err)
	_, err = svc.RefetchMetadata(context.Background(), text.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestDedupeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupeTags([]string{"b", " a", "b ", "", "a"}))
	assert.Empty(t, dedupeTags(nil))
}
