package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	APIPrefix  string
	LogLevel   string

	DatabaseURL string

	JWTSecret []byte
	JWTIssuer string
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SweepInterval time.Duration

	KafkaBrokers     []string
	KafkaTopic       string
	KafkaMaxAttempts int

	EventsBuffer         int
	EventsWorkers        int
	EventsPublishTimeout time.Duration

	ShutdownTimeout time.Duration
}

// Load reads .env (when present) and the process environment. It returns a
// *ConfigError when a required value is missing or a value cannot be parsed.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v. Using system environment variables", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	e := env{get: getenv}

	cfg := &Config{
		ListenAddr: e.str("LISTEN_ADDR", ":8080"),
		APIPrefix:  e.str("API_PREFIX", "/api"),
		LogLevel:   e.str("LOG_LEVEL", "info"),

		DatabaseURL: e.str("DATABASE_URL", "sqlite://file::memory:?cache=shared"),

		JWTSecret: []byte(getenv("JWT_SECRET")),
		JWTIssuer: getenv("JWT_ISSUER"),
		TokenTTL:  e.duration("TOKEN_TTL", 60*time.Minute),

		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		RedisDB:       e.int("REDIS_DB", 0),
		SweepInterval: e.duration("REVOCATION_SWEEP_INTERVAL", time.Minute),

		KafkaBrokers:     CSV(getenv("KAFKA_BROKERS")),
		KafkaTopic:       e.str("KAFKA_TOPIC", "user.authenticated"),
		KafkaMaxAttempts: e.int("KAFKA_MAX_ATTEMPTS", 3),

		EventsBuffer:         e.int("EVENTS_BUFFER", 1024),
		EventsWorkers:        e.int("EVENTS_WORKERS", 2),
		EventsPublishTimeout: e.duration("EVENTS_PUBLISH_TIMEOUT", 5*time.Second),

		ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if len(e.errs) > 0 {
		return nil, &ConfigError{Problems: e.errs}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if len(c.JWTSecret) == 0 {
		problems = append(problems, "missing required env JWT_SECRET")
	}
	if len(c.KafkaBrokers) == 0 {
		problems = append(problems, "missing required env KAFKA_BROKERS")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		problems = append(problems, "REVOCATION_SWEEP_INTERVAL must be positive")
	}
	if c.EventsBuffer <= 0 {
		problems = append(problems, "EVENTS_BUFFER must be positive")
	}
	if c.EventsWorkers <= 0 {
		problems = append(problems, "EVENTS_WORKERS must be positive")
	}
	if c.EventsPublishTimeout <= 0 {
		problems = append(problems, "EVENTS_PUBLISH_TIMEOUT must be positive")
	}
	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// ConfigError is fatal at startup; it never occurs per request.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", strings.Join(e.Problems, "; "))
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type env struct {
	get  func(string) string
	errs []string
}

func (e *env) str(key, def string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := e.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.get(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}
