package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "clinic", cfg.MongoDatabase)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 10*time.Second, cfg.TxnTimeout)
	assert.Equal(t, 20, cfg.BookingRateLimit)
	assert.Equal(t, time.Minute, cfg.BookingRateWindow)
	assert.Equal(t, 50, cfg.OutboxBatchSize)
	assert.Equal(t, "*/30 * * * *", cfg.ReconcileSchedule)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.NoError(t, cfg.Validate(true))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("TXN_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.TxnTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:        "production",
		MongoURI:   "mongodb://db:27017",
		JWTSecret:  "0123456789abcdef",
		JWTTTL:     time.Hour,
		BcryptCost: 12,
		TxnTimeout: time.Second,
	}
	require.NoError(t, base.Validate(true))

	noMongo := base
	noMongo.MongoURI = ""
	assert.Error(t, noMongo.Validate(true))
	assert.NoError(t, noMongo.Validate(false))

	short := base
	short.JWTSecret = "tiny"
	assert.Error(t, short.Validate(true))
	short.Env = "development"
	assert.NoError(t, short.Validate(true))

	badCost := base
	badCost.BcryptCost = 2
	assert.Error(t, badCost.Validate(true))
}

func TestLoadReportsDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.DotEnvErr)

	require.NoError(t, os.WriteFile(".env", []byte("# local settings\n"), 0o600))
	cfg, err = Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.DotEnvErr)
}
