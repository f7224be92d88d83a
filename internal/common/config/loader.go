// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ReconcileTaskType is the Zeebe job type served by the reconciliation worker.
const ReconcileTaskType = "reconcile-quote-vehicles"

// DefaultTargetState is the region whose active vehicle master versions the
// reconciliation resolves against.
const DefaultTargetState = "WI"

var defaultSearchPaths = []string{"./configs", "../../configs", "."}

// Load reads configs/config.yaml, overlays config.<APP_ENVIRONMENT>.yaml and
// environment variables, then validates the result.
func Load() (*Config, error) {
	return LoadWithPaths(defaultSearchPaths...)
}

// LoadWithPaths is Load with explicit config search paths.
func LoadWithPaths(paths ...string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // env overlay is optional

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "quote-vehicle-reconciler")
	v.SetDefault("app.version", "0.1.0")

	v.SetDefault("camunda.broker_address", "localhost:26500")
	v.SetDefault("camunda.max_jobs_active", 1)
	v.SetDefault("camunda.timeout", 600000)
	v.SetDefault("camunda.request_timeout", 30000)

	v.SetDefault("database.mongo.uri", "")
	v.SetDefault("database.mongo.host", "localhost")
	v.SetDefault("database.mongo.port", 27017)
	v.SetDefault("database.mongo.username", "")
	v.SetDefault("database.mongo.password", "")
	v.SetDefault("database.mongo.auth_source", "admin")
	v.SetDefault("database.mongo.database", "cache")
	v.SetDefault("database.mongo.connect_timeout", 10000)
	v.SetDefault("database.mongo.max_pool_size", 10)
	v.SetDefault("database.mongo.collections.vehicle_masters", "VehicleMasters")
	v.SetDefault("database.mongo.collections.quotes", "Quotes")
	v.SetDefault("database.mongo.collections.vehicle_catalogs", "VehicleCatalogs")
	v.SetDefault("database.mongo.collections.new_quotes", "NewQuotes")
	v.SetDefault("database.mongo.collections.quote_update_log", "UQuotesLog")

	v.SetDefault("database.postgres.enabled", false)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "reconciler")
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.max_connections", 5)
	v.SetDefault("database.postgres.max_idle", 2)
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("database.redis.enabled", false)
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("reconcile.target_state", DefaultTargetState)
	v.SetDefault("reconcile.dry_run", false)
	v.SetDefault("reconcile.apply", false)
	v.SetDefault("reconcile.cache_ttl", 3600)
	v.SetDefault("reconcile.query_timeout", 60000)
	v.SetDefault("reconcile.fixtures_path", "")

	v.SetDefault("workers."+ReconcileTaskType+".enabled", true)
	v.SetDefault("workers."+ReconcileTaskType+".max_jobs_active", 1)
	v.SetDefault("workers."+ReconcileTaskType+".timeout", 600000)
	v.SetDefault("workers."+ReconcileTaskType+".max_retries", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 8080)
}

// loadEnvFile loads the first .env found walking up towards the project root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the conventional variable names used by the
// deployment scripts when the namespaced ones are unset.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Mongo.URI == "" {
		if val := os.Getenv("MONGO_URI"); val != "" {
			cfg.Database.Mongo.URI = val
		}
	}
	if cfg.Database.Mongo.Username == "" {
		if val := os.Getenv("MONGO_USERNAME"); val != "" {
			cfg.Database.Mongo.Username = val
		}
	}
	if cfg.Database.Mongo.Password == "" {
		if val := os.Getenv("MONGO_PASSWORD"); val != "" {
			cfg.Database.Mongo.Password = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Mongo.URI == "" && cfg.Database.Mongo.Host == "" && cfg.Reconcile.FixturesPath == "" {
		return fmt.Errorf("database.mongo.uri or database.mongo.host is required")
	}
	if cfg.Database.Mongo.Database == "" {
		return fmt.Errorf("database.mongo.database is required")
	}
	c := cfg.Database.Mongo.Collections
	if c.VehicleMasters == "" || c.Quotes == "" || c.VehicleCatalogs == "" {
		return fmt.Errorf("database.mongo.collections must name vehicle_masters, quotes and vehicle_catalogs")
	}
	if len(cfg.Reconcile.TargetState) != 2 {
		return fmt.Errorf("reconcile.target_state must be a two-letter state code, got %q", cfg.Reconcile.TargetState)
	}
	if cfg.Reconcile.DryRun && cfg.Reconcile.Apply {
		return fmt.Errorf("reconcile.dry_run and reconcile.apply are mutually exclusive")
	}
	if cfg.Reconcile.CacheTTL < 0 {
		return fmt.Errorf("reconcile.cache_ttl must not be negative")
	}
	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}
	if cfg.Database.Postgres.Enabled && cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required when postgres is enabled")
	}
	return nil
}
