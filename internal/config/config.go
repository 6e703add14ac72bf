package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries the full environment surface of the service.
type Config struct {
	AppEnv  string
	AppName string

	DBHost                   string
	DBPort                   string
	DBUser                   string
	DBPassword               string
	DBName                   string
	DBSSLMode                string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int

	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisMaxRetries   int

	AppPort     string
	MetricsPort string
	LogLevel    string

	// Classifier is the external content-classification service.
	ClassifierEndpoint string
	ClassifierAPIKey   string
	ClassifierTimeout  time.Duration

	// Moderation policy thresholds. Scores at or above RejectThreshold
	// reject; at or below ApproveThreshold approve; the band between is
	// decided by the per-category table.
	ModerationRejectThreshold  float64
	ModerationApproveThreshold float64
	ModerationRulesPath        string

	AdminToken string

	// WeeklySubmissionLimit caps submissions per rolling week. Zero disables
	// server-side enforcement; /weekly-stats still reports the count.
	WeeklySubmissionLimit int

	// RequeueSchedule is the cron spec for re-moderating pending submissions.
	RequeueSchedule string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:              os.Getenv("APP_ENV"),
		AppName:             os.Getenv("APP_NAME"),
		DBHost:              os.Getenv("DB_HOST"),
		DBPort:              os.Getenv("DB_PORT"),
		DBUser:              os.Getenv("DB_USER"),
		DBPassword:          os.Getenv("DB_PASSWORD"),
		DBName:              os.Getenv("DB_NAME"),
		DBSSLMode:           os.Getenv("DB_SSL_MODE"),
		RedisHost:           os.Getenv("REDIS_HOST"),
		RedisPort:           os.Getenv("REDIS_PORT"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		AppPort:             os.Getenv("APP_PORT"),
		MetricsPort:         os.Getenv("METRICS_PORT"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		ClassifierEndpoint:  os.Getenv("CLASSIFIER_ENDPOINT"),
		ClassifierAPIKey:    os.Getenv("CLASSIFIER_API_KEY"),
		ModerationRulesPath: os.Getenv("MODERATION_RULES_PATH"),
		AdminToken:          os.Getenv("ADMIN_TOKEN"),
		RequeueSchedule:     os.Getenv("REQUEUE_SCHEDULE"),
	}

	if cfg.AppName == "" {
		cfg.AppName = "memorywall"
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.AppPort == "" {
		cfg.AppPort = ":8080"
	}
	if cfg.MetricsPort == "" {
		cfg.MetricsPort = ":9090"
	}
	if cfg.RequeueSchedule == "" {
		cfg.RequeueSchedule = "@every 10m"
	}

	var err error
	cfg.DBMaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", 20)
	if err != nil {
		return nil, err
	}
	cfg.DBMaxIdleConns, err = intEnv("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, err
	}
	cfg.DBConnMaxLifetimeMinutes, err = intEnv("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.RedisDB, err = intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.RedisPoolSize, err = intEnv("REDIS_POOL_SIZE", 10)
	if err != nil {
		return nil, err
	}
	cfg.RedisMinIdleConns, err = intEnv("REDIS_MIN_IDLE_CONNS", 2)
	if err != nil {
		return nil, err
	}
	cfg.RedisMaxRetries, err = intEnv("REDIS_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	cfg.WeeklySubmissionLimit, err = intEnv("WEEKLY_SUBMISSION_LIMIT", 0)
	if err != nil {
		return nil, err
	}
	cfg.ModerationRejectThreshold, err = floatEnv("MODERATION_REJECT_THRESHOLD", 0.85)
	if err != nil {
		return nil, err
	}
	cfg.ModerationApproveThreshold, err = floatEnv("MODERATION_APPROVE_THRESHOLD", 0.2)
	if err != nil {
		return nil, err
	}
	cfg.ClassifierTimeout, err = durationEnv("CLASSIFIER_TIMEOUT", 8*time.Second)
	if err != nil {
		return nil, err
	}

	if cfg.DBHost == "" || cfg.DBPort == "" || cfg.DBUser == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("missing required database environment variables")
	}
	if cfg.ClassifierAPIKey == "" {
		return nil, fmt.Errorf("missing CLASSIFIER_API_KEY")
	}
	if cfg.AdminToken == "" {
		return nil, fmt.Errorf("missing ADMIN_TOKEN")
	}
	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func floatEnv(name string, fallback float64) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return f, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
