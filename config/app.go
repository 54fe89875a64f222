package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Redis    RedisConfig
	Mongo    MongoConfig
	Postgres PostgresConfig

	Landing  LandingConfig
	Reasoner ReasonerConfig
	Talk     TalkConfig
	Telegram TelegramConfig
	Voice    VoiceConfig
}

type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	URL       string `env:"REDIS_URL"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"sightline:"`
}

// MongoConfig and PostgresConfig are optional; an empty URI disables the features backed by them.
type MongoConfig struct {
	URI        string `env:"MONGO_URI"`
	DB         string `env:"MONGO_DB" envDefault:"sightline"`
	ForceTLS12 bool   `env:"MONGO_FORCE_TLS12"`
}

type PostgresConfig struct {
	URI         string `env:"POSTGRES_URI"`
	AutoMigrate bool   `env:"POSTGRES_AUTO_MIGRATE" envDefault:"true"`
}

type LandingConfig struct {
	Store     string `env:"LANDING_STORE" envDefault:"disk"` // disk|gcs
	Dir       string `env:"LANDING_DIR" envDefault:"./data/landing"`
	GCSBucket string `env:"GCS_BUCKET"`
}

type ReasonerConfig struct {
	Kind    string        `env:"REASONER" envDefault:"gemini_api"` // vertex|gemini_api
	Timeout time.Duration `env:"REASONER_TIMEOUT" envDefault:"20s"`

	VertexProject  string `env:"VERTEX_PROJECT"`
	VertexLocation string `env:"VERTEX_LOCATION" envDefault:"us-central1"`
	VertexModel    string `env:"VERTEX_MODEL" envDefault:"gemini-2.0-flash"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
}

type TalkConfig struct {
	ReadyTTL       time.Duration `env:"TALK_READY_TTL" envDefault:"5m"`
	Gate           string        `env:"TALK_GATE" envDefault:"redis"` // redis | memory (single instance)
	Classifier     string        `env:"TALK_CLASSIFIER" envDefault:"keyword"`
	LogTTL         time.Duration `env:"TALK_LOG_TTL" envDefault:"24h"`
	CleanupTimeout time.Duration `env:"TALK_CLEANUP_TIMEOUT" envDefault:"10s"`
}

type TelegramConfig struct {
	Token  string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID int64  `env:"TELEGRAM_CHAT_ID"`
	APIURL string `env:"TELEGRAM_API_URL"`
}

type VoiceConfig struct {
	Enabled bool   `env:"VOICE_ENABLED"`
	Workers int    `env:"VOICE_WORKERS" envDefault:"2"`
	Stream  string `env:"VOICE_STREAM" envDefault:"talk:voice"`

	SampleRateHz  int32   `env:"VOICE_SAMPLE_RATE" envDefault:"16000"`
	MinConfidence float64 `env:"VOICE_MIN_CONFIDENCE" envDefault:"0.4"`
}

// Load reads .env when present, then the process environment.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c AppConfig) Validate() error {
	var errs []error

	switch c.Landing.Store {
	case "disk":
		if c.Landing.Dir == "" {
			errs = append(errs, errors.New("LANDING_DIR is required for LANDING_STORE=disk"))
		}
	case "gcs":
		if c.Landing.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for LANDING_STORE=gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("LANDING_STORE must be disk or gcs, got %q", c.Landing.Store))
	}

	switch c.Reasoner.Kind {
	case "gemini_api":
		if c.Reasoner.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for REASONER=gemini_api"))
		}
	case "vertex":
		if c.Reasoner.VertexProject == "" {
			errs = append(errs, errors.New("VERTEX_PROJECT is required for REASONER=vertex"))
		}
	default:
		errs = append(errs, fmt.Errorf("REASONER must be vertex or gemini_api, got %q", c.Reasoner.Kind))
	}

	if c.Talk.ReadyTTL < 0 {
		errs = append(errs, errors.New("TALK_READY_TTL must be >= 0"))
	}
	if c.Talk.Gate != "redis" && c.Talk.Gate != "memory" {
		errs = append(errs, fmt.Errorf("TALK_GATE must be redis or memory, got %q", c.Talk.Gate))
	}
	if c.Voice.Enabled && c.Voice.Workers < 1 {
		errs = append(errs, errors.New("VOICE_WORKERS must be >= 1 when VOICE_ENABLED"))
	}
	return errors.Join(errs...)
}
