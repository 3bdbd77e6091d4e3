package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env           string        `mapstructure:"ENV"`
	Port          string        `mapstructure:"API_PORT"`
	MongoURI      string        `mapstructure:"MONGO_URI"`
	MongoDatabase string        `mapstructure:"MONGO_DATABASE"`
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTTTL        time.Duration `mapstructure:"JWT_TTL"`
	BcryptCost    int           `mapstructure:"BCRYPT_COST"`
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	TxnTimeout    time.Duration `mapstructure:"TXN_TIMEOUT"`

	RedisURL          string        `mapstructure:"REDIS_URL"`
	BookingRateLimit  int           `mapstructure:"BOOKING_RATE_LIMIT"`
	BookingRateWindow time.Duration `mapstructure:"BOOKING_RATE_WINDOW"`
	DoctorCacheTTL    time.Duration `mapstructure:"DOCTOR_CACHE_TTL"`

	KafkaBrokers       []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic         string        `mapstructure:"KAFKA_TOPIC"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE"`

	ReconcileSchedule string `mapstructure:"RECONCILE_SCHEDULE"`

	// DotEnvErr is why no .env file was loaded, nil when one was.
	DotEnvErr error `mapstructure:"-"`
}

var keys = []string{
	"ENV", "API_PORT", "MONGO_URI", "MONGO_DATABASE", "JWT_SECRET", "JWT_TTL",
	"BCRYPT_COST", "CORS_ORIGINS", "LOG_LEVEL", "TXN_TIMEOUT",
	"REDIS_URL", "BOOKING_RATE_LIMIT", "BOOKING_RATE_WINDOW", "DOCTOR_CACHE_TTL",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE",
	"RECONCILE_SCHEDULE",
}

// Load reads an optional .env file into the process environment and then
// builds the configuration from environment variables.
func Load() (*Config, error) {
	dotEnvErr := godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("API_PORT", "8080")
	v.SetDefault("MONGO_DATABASE", "clinic")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TXN_TIMEOUT", "10s")
	v.SetDefault("BOOKING_RATE_LIMIT", 20)
	v.SetDefault("BOOKING_RATE_WINDOW", "1m")
	v.SetDefault("DOCTOR_CACHE_TTL", "5m")
	v.SetDefault("KAFKA_TOPIC", "clinic.appointments")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "2s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 50)
	v.SetDefault("RECONCILE_SCHEDULE", "*/30 * * * *")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.DotEnvErr = dotEnvErr

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the settings the server cannot start without. Commands that
// run against the in-memory store skip the Mongo requirement.
func (c *Config) Validate(requireMongo bool) error {
	if requireMongo && c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !c.IsDev() && len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes outside development")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.TxnTimeout <= 0 {
		return fmt.Errorf("TXN_TIMEOUT must be positive, got %s", c.TxnTimeout)
	}
	return nil
}
