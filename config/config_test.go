package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mapping-pipeline", cfg.Service.Name)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Service.ShutdownTimeout)

	// Saga stays off until a deployment opts in.
	assert.False(t, cfg.Saga.Enabled)
	assert.Empty(t, cfg.Saga.Operations)
	assert.Equal(t, 5*time.Minute, cfg.Saga.PolicyTTL)

	assert.Equal(t, "data.lineage", cfg.Kafka.LineageTopic)
	assert.Equal(t, "saga-coordinator", cfg.Discovery.CoordinatorService)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL.SagaPolicy)

	// Every collaborator carries breaker and rate limit defaults.
	assert.True(t, cfg.Collaborators.DataAccess.Breaker.Enabled)
	assert.Equal(t, uint32(5), cfg.Collaborators.DataAccess.Breaker.MinRequests)
	assert.Equal(t, 0.6, cfg.Collaborators.DataAccess.Breaker.FailureRate)
	assert.Equal(t, 50, cfg.Collaborators.Reasoner.RateLimit.RequestsPerSecond)

	// Long-running collaborators get extended timeouts.
	assert.Equal(t, 120*time.Second, cfg.Collaborators.Transformer.Timeout)
	assert.Equal(t, 120*time.Second, cfg.Collaborators.FieldExtractor.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Collaborators.DataAccess.Timeout)
}

func TestPostgreSQLConfig_GetDSN(t *testing.T) {
	cfg := PostgreSQLConfig{
		Host:     "db.internal",
		Port:     5433,
		Database: "mapping_pipeline",
		Username: "svc",
		Password: "secret",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=secret dbname=mapping_pipeline sslmode=require",
		cfg.GetDSN())
}

func TestRedisConfig_GetRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: "6380"}
	assert.Equal(t, "cache.internal:6380", cfg.GetRedisAddr())
}
