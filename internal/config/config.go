package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Export    ExportConfig    `yaml:"export"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// SnowflakeConfig holds warehouse credentials for the ticket export job.
// Only validated when an export is actually requested; the analysis
// pipeline and the query API run without them.
type SnowflakeConfig struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
}

type ExportConfig struct {
	// Schedule is a 5-field cron expression for the periodic warehouse
	// export while serving. Empty disables scheduled exports.
	Schedule string `yaml:"schedule"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:       4100,
			CORSOrigin: "http://localhost:3000",
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and the
// environment. The file path comes from TRIAGE_CONFIG (default
// ./config.yaml); a missing file is not an error. TRIAGE_* and
// SNOWFLAKE_* environment variables override file values.
func Load() (Config, error) {
	cfg := defaults()

	path := "config.yaml"
	if envPath := os.Getenv("TRIAGE_CONFIG"); envPath != "" {
		path = envPath
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	envOverrideInt(&cfg.Server.Port, "TRIAGE_PORT")
	envOverride(&cfg.Server.CORSOrigin, "TRIAGE_CORS_ORIGIN")
	envOverride(&cfg.Storage.DataDir, "TRIAGE_DATA_DIR")
	envOverride(&cfg.Export.Schedule, "TRIAGE_EXPORT_SCHEDULE")
	envOverride(&cfg.Log.Level, "TRIAGE_LOG_LEVEL")

	envOverride(&cfg.Snowflake.Account, "SNOWFLAKE_ACCOUNT")
	envOverride(&cfg.Snowflake.User, "SNOWFLAKE_USER")
	envOverride(&cfg.Snowflake.Password, "SNOWFLAKE_PASSWORD")
	envOverride(&cfg.Snowflake.Warehouse, "SNOWFLAKE_WAREHOUSE")
	envOverride(&cfg.Snowflake.Database, "SNOWFLAKE_DATABASE")
	envOverride(&cfg.Snowflake.Schema, "SNOWFLAKE_SCHEMA")
}

func envOverride(target *string, name string) {
	if v := os.Getenv(name); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// Validate reports the Snowflake settings that are still missing, named
// after their environment variables so the error is actionable.
func (c SnowflakeConfig) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"SNOWFLAKE_ACCOUNT", c.Account},
		{"SNOWFLAKE_USER", c.User},
		{"SNOWFLAKE_PASSWORD", c.Password},
		{"SNOWFLAKE_WAREHOUSE", c.Warehouse},
		{"SNOWFLAKE_DATABASE", c.Database},
		{"SNOWFLAKE_SCHEMA", c.Schema},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing snowflake config: %s", strings.Join(missing, ", "))
	}
	return nil
}
