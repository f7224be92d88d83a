package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	return dir
}

func TestLoadWithPaths_Defaults(t *testing.T) {
	cfg, err := LoadWithPaths(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "WI", cfg.Reconcile.TargetState)
	assert.Equal(t, "cache", cfg.Database.Mongo.Database)
	assert.Equal(t, "admin", cfg.Database.Mongo.AuthSource)
	assert.Equal(t, "VehicleMasters", cfg.Database.Mongo.Collections.VehicleMasters)
	assert.Equal(t, "Quotes", cfg.Database.Mongo.Collections.Quotes)
	assert.Equal(t, "VehicleCatalogs", cfg.Database.Mongo.Collections.VehicleCatalogs)
	assert.Equal(t, "NewQuotes", cfg.Database.Mongo.Collections.NewQuotes)
	assert.Equal(t, "UQuotesLog", cfg.Database.Mongo.Collections.QuoteUpdateLog)
	assert.Equal(t, time.Hour, cfg.Reconcile.GetCacheTTL())
	assert.Equal(t, time.Minute, cfg.Reconcile.GetQueryTimeout())
	assert.False(t, cfg.Database.Redis.Enabled)
	assert.False(t, cfg.Database.Postgres.Enabled)
	assert.True(t, cfg.Workers[ReconcileTaskType].Enabled)
	assert.Equal(t, "development", cfg.App.Environment)
}

func TestLoadWithPaths_FileAndEnvOverlay(t *testing.T) {
	dir := writeConfig(t, "config.yaml", `
database:
  mongo:
    uri: mongodb://db.internal:27017
    database: quotes
reconcile:
  target_state: IL
  cache_ttl: 60
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte(`
reconcile:
  dry_run: true
`), 0o600))

	t.Setenv("APP_ENVIRONMENT", "staging")
	t.Setenv("DATABASE_REDIS_ENABLED", "true")
	t.Setenv("MONGO_PASSWORD", "s3cret")

	cfg, err := LoadWithPaths(dir)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db.internal:27017", cfg.Database.Mongo.GetURI())
	assert.Equal(t, "quotes", cfg.Database.Mongo.Database)
	assert.Equal(t, "IL", cfg.Reconcile.TargetState)
	assert.Equal(t, time.Minute, cfg.Reconcile.GetCacheTTL())
	assert.True(t, cfg.Reconcile.DryRun)
	assert.True(t, cfg.Database.Redis.Enabled)
	assert.Equal(t, "s3cret", cfg.Database.Mongo.Password)
	assert.Equal(t, "staging", cfg.App.Environment)
}

func TestLoadWithPaths_ExpandsPlaceholders(t *testing.T) {
	dir := writeConfig(t, "config.yaml", `
database:
  mongo:
    host: ${TEST_MONGO_HOST}
`)
	t.Setenv("TEST_MONGO_HOST", "mongo-1")

	cfg, err := LoadWithPaths(dir)
	require.NoError(t, err)
	assert.Equal(t, "mongo-1", cfg.Database.Mongo.Host)
}

func TestLoadWithPaths_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "bad state",
			body: "reconcile:\n  target_state: WIS\n",
		},
		{
			name: "dry run and apply",
			body: "reconcile:\n  dry_run: true\n  apply: true\n",
		},
		{
			name: "negative ttl",
			body: "reconcile:\n  cache_ttl: -1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithPaths(writeConfig(t, "config.yaml", tt.body))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestMongoConfig_GetURI_FromHost(t *testing.T) {
	m := MongoConfig{Host: "localhost", Port: 27017, Options: map[string]string{"replicaSet": "rs0"}}
	assert.Equal(t, "mongodb://localhost:27017/?replicaSet=rs0", m.GetURI())
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "pg", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=pg port=5432 user=u password=p dbname=d sslmode=disable", p.GetDSN())
}
