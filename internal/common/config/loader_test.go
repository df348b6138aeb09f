package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Equal(t, "draft-engine", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, ":9102", cfg.Server.MetricsAddress)
	assert.Equal(t, "localhost:6379", cfg.Database.Redis.Address)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, 15*time.Minute, cfg.Storage.SignedURLTTL)
	assert.Equal(t, 2*time.Second, cfg.Engine.AutosaveDelay)
	assert.Equal(t, 4, cfg.Engine.ResolverConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.Engine.HandoffTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Engine.AutosaveDelay = 500 * time.Millisecond
	cfg.Database.Redis.Address = "redis.internal:6380"

	applyDefaults(&cfg)

	assert.Equal(t, 500*time.Millisecond, cfg.Engine.AutosaveDelay)
	assert.Equal(t, "redis.internal:6380", cfg.Database.Redis.Address)
}

func TestOverrideEmptyConfig(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "drafts-prod")
	t.Setenv("DATABASE_REDIS_ADDRESS", "redis.prod:6379")
	t.Setenv("DATABASE_POSTGRES_HOST", "pg.prod")

	var cfg Config
	overrideEmptyConfig(&cfg)

	assert.Equal(t, "drafts-prod", cfg.Storage.Bucket)
	assert.Equal(t, "redis.prod:6379", cfg.Database.Redis.Address)
	assert.Equal(t, "pg.prod", cfg.Database.Postgres.Host)
}

func TestOverrideEmptyConfig_BucketFromFileWins(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "env-bucket")

	cfg := Config{}
	cfg.Storage.Bucket = "file-bucket"
	overrideEmptyConfig(&cfg)

	assert.Equal(t, "file-bucket", cfg.Storage.Bucket)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		var cfg Config
		applyDefaults(&cfg)
		cfg.Storage.Bucket = "drafts"
		return &cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config passes",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing bucket",
			mutate:  func(c *Config) { c.Storage.Bucket = "" },
			wantErr: "storage.bucket is required",
		},
		{
			name:    "autosave delay too short",
			mutate:  func(c *Config) { c.Engine.AutosaveDelay = 50 * time.Millisecond },
			wantErr: "autosave_delay",
		},
		{
			name:    "non-positive resolver concurrency",
			mutate:  func(c *Config) { c.Engine.ResolverConcurrency = -1 },
			wantErr: "resolver_concurrency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "drafts",
		Password: "secret",
		Database: "drafts",
		SSLMode:  "disable",
	}

	dsn := cfg.GetDSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "sslmode=disable")
}
