package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/soaringjerry/tsa-checkout/internal/utils"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

const (
	PaymentStripe = "stripe"
	// PaymentFake approves every checkout without charging. Local use only.
	PaymentFake = "fake"
)

// Config holds application configuration
type Config struct {
	Addr            string
	BaseURL         string
	Payment         string
	StripeSecretKey string
	TokenSecret     string

	Store          string
	DataDir        string
	SQLitePath     string
	MigrationsDir  string
	SubmissionTTL  time.Duration
	SweepInterval  time.Duration
	QuestionsFile  string
	StaticDir      string
	ShutdownWindow time.Duration

	Log    LogConfig
	Sentry SentryConfig

	Commit    string
	BuildTime string
}

type LogConfig struct {
	Level string
	File  string
	JSON  bool
}

type SentryConfig struct {
	DSN string
}

func (s SentryConfig) Active() bool { return s.DSN != "" }

// Load reads configuration from the environment, after loading .env when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := utils.SafeEnv("TSA_DATA_DIR", "./data")
	cfg := &Config{
		Addr:            utils.SafeEnv("TSA_ADDR", ":8080"),
		BaseURL:         utils.SafeEnv("TSA_BASE_URL", "http://localhost:8080/"),
		Payment:         utils.SafeEnv("TSA_PAYMENT", PaymentStripe),
		StripeSecretKey: utils.SafeEnv("STRIPE_SECRET_KEY", ""),
		TokenSecret:     utils.SafeEnv("TSA_TOKEN_SECRET", ""),
		Store:           utils.SafeEnv("TSA_STORE", StoreFile),
		DataDir:         dataDir,
		SQLitePath:      utils.SafeEnv("TSA_SQLITE_PATH", filepath.Join(dataDir, "tsa.db")),
		MigrationsDir:   utils.SafeEnv("TSA_MIGRATIONS_DIR", ""),
		QuestionsFile:   utils.SafeEnv("TSA_QUESTIONS_FILE", ""),
		StaticDir:       utils.SafeEnv("TSA_STATIC_DIR", ""),
		Log: LogConfig{
			Level: utils.SafeEnv("TSA_LOG_LEVEL", "info"),
			File:  utils.SafeEnv("TSA_LOG_FILE", ""),
			JSON:  utils.SafeEnv("TSA_LOG_FORMAT", "text") == "json",
		},
		Sentry:    SentryConfig{DSN: utils.SafeEnv("SENTRY_DSN", "")},
		Commit:    utils.SafeEnv("TSA_COMMIT", ""),
		BuildTime: utils.SafeEnv("TSA_BUILD_TIME", ""),
	}

	var err error
	if cfg.SubmissionTTL, err = utils.DurationEnv("TSA_SUBMISSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = utils.DurationEnv("TSA_SWEEP_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownWindow, err = utils.DurationEnv("TSA_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("TSA_STORE: unknown store %q (want file, sqlite or memory)", c.Store)
	}
	switch c.Payment {
	case PaymentStripe, PaymentFake:
	default:
		return fmt.Errorf("TSA_PAYMENT: unknown provider %q (want stripe or fake)", c.Payment)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("TSA_BASE_URL: %q must be an absolute url", c.BaseURL)
	}
	if c.SubmissionTTL <= 0 {
		return fmt.Errorf("TSA_SUBMISSION_TTL must be positive")
	}
	return nil
}

// AnswerDir is where the file store keeps submissions.
func (c *Config) AnswerDir() string { return filepath.Join(c.DataDir, "submissions") }
