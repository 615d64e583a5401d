package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Transport TransportConfig
	OpenAI    OpenAIConfig
	Kafka     KafkaConfig
	Session   SessionConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TransportConfig points at the chat gateway and the fixed channel topology.
type TransportConfig struct {
	BaseURL         string
	Token           string
	WebhookSecret   string
	TriageChannelID string
	SalesChannelID  string
	PoolGroupIDs    []string
	QRGatewayURL    string
}

// OpenAIConfig configures the NLP classifier backend.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// KafkaConfig configures the optional ticket-event audit stream.
type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
}

// SessionConfig defines conversation and session timing.
type SessionConfig struct {
	StateTTLSeconds          int
	InactivityTimeoutSeconds int
	MenuSeedPath             string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "isp-routing-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Transport: TransportConfig{
			BaseURL:         getEnv("TRANSPORT_BASE_URL", "http://127.0.0.1:3000"),
			Token:           os.Getenv("TRANSPORT_TOKEN"),
			WebhookSecret:   os.Getenv("TRANSPORT_WEBHOOK_SECRET"),
			TriageChannelID: os.Getenv("TRIAGE_CHANNEL_ID"),
			SalesChannelID:  os.Getenv("SALES_CHANNEL_ID"),
			PoolGroupIDs:    getEnvAsList("POOL_GROUP_IDS"),
			QRGatewayURL:    getEnv("QR_GATEWAY_URL", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvAsList("KAFKA_BROKERS"),
			EventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "support-events"),
		},
		Session: SessionConfig{
			StateTTLSeconds:          getEnvAsInt("CONVERSATION_STATE_TTL_SECONDS", 3600),
			InactivityTimeoutSeconds: getEnvAsInt("SESSION_INACTIVITY_TIMEOUT_SECONDS", 900),
			MenuSeedPath:             getEnv("MENU_SEED_PATH", "menu.yaml"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// StateTTL returns the conversation state expiry duration.
func (s SessionConfig) StateTTL() time.Duration {
	return time.Duration(s.StateTTLSeconds) * time.Second
}

// InactivityTimeout returns the session auto-close window.
func (s SessionConfig) InactivityTimeout() time.Duration {
	return time.Duration(s.InactivityTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
