package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "memorywall")
	t.Setenv("DB_NAME", "memorywall")
	t.Setenv("CLASSIFIER_API_KEY", "test-key")
	t.Setenv("ADMIN_TOKEN", "test-admin")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memorywall", cfg.AppName)
	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, ":9090", cfg.MetricsPort)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, "@every 10m", cfg.RequeueSchedule)
	assert.Equal(t, 0, cfg.WeeklySubmissionLimit)
	assert.InDelta(t, 0.85, cfg.ModerationRejectThreshold, 1e-9)
	assert.InDelta(t, 0.2, cfg.ModerationApproveThreshold, 1e-9)
	assert.Equal(t, 8*time.Second, cfg.ClassifierTimeout)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("WEEKLY_SUBMISSION_LIMIT", "25")
	t.Setenv("MODERATION_REJECT_THRESHOLD", "0.9")
	t.Setenv("CLASSIFIER_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.WeeklySubmissionLimit)
	assert.InDelta(t, 0.9, cfg.ModerationRejectThreshold, 1e-9)
	assert.Equal(t, 3*time.Second, cfg.ClassifierTimeout)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"database", "DB_HOST"},
		{"classifier key", "CLASSIFIER_API_KEY"},
		{"admin token", "ADMIN_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.unset, "")
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	setRequired(t)
	t.Setenv("WEEKLY_SUBMISSION_LIMIT", "many")
	_, err := Load()
	assert.Error(t, err)
}
