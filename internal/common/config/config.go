// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Reconcile ReconcileConfig         `mapstructure:"reconcile"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Logging   LoggingConfig           `mapstructure:"logging"`
	Metrics   MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// MongoConfig describes the document store holding the vehicle masters,
// quotes and catalogs. Credentials are checked against AuthSource while the
// collections live in Database.
type MongoConfig struct {
	URI            string            `mapstructure:"uri"`
	Host           string            `mapstructure:"host"`
	Port           int               `mapstructure:"port"`
	Username       string            `mapstructure:"username"`
	Password       string            `mapstructure:"password"`
	AuthSource     string            `mapstructure:"auth_source"`
	Database       string            `mapstructure:"database"`
	ConnectTimeout int               `mapstructure:"connect_timeout"` // milliseconds
	MaxPoolSize    uint64            `mapstructure:"max_pool_size"`
	Collections    MongoCollections  `mapstructure:"collections"`
	Options        map[string]string `mapstructure:"options"`
}

type MongoCollections struct {
	VehicleMasters  string `mapstructure:"vehicle_masters"`
	Quotes          string `mapstructure:"quotes"`
	VehicleCatalogs string `mapstructure:"vehicle_catalogs"`
	NewQuotes       string `mapstructure:"new_quotes"`
	QuoteUpdateLog  string `mapstructure:"quote_update_log"`
}

// GetURI returns the configured URI, or one assembled from host and port.
func (m MongoConfig) GetURI() string {
	if m.URI != "" {
		return m.URI
	}
	u := url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%d", m.Host, m.Port), Path: "/"}
	q := url.Values{}
	for k, v := range m.Options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (m MongoConfig) GetConnectTimeout() time.Duration {
	return time.Duration(m.ConnectTimeout) * time.Millisecond
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ReconcileConfig drives a reconciliation run.
type ReconcileConfig struct {
	TargetState  string `mapstructure:"target_state"`
	DryRun       bool   `mapstructure:"dry_run"`
	Apply        bool   `mapstructure:"apply"`
	CacheTTL     int    `mapstructure:"cache_ttl"`     // seconds
	QueryTimeout int    `mapstructure:"query_timeout"` // milliseconds, per stage query
	FixturesPath string `mapstructure:"fixtures_path"`
}

func (r ReconcileConfig) GetCacheTTL() time.Duration {
	return time.Duration(r.CacheTTL) * time.Second
}

func (r ReconcileConfig) GetQueryTimeout() time.Duration {
	return time.Duration(r.QueryTimeout) * time.Millisecond
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}
