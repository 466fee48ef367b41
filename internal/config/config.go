// Package config loads docquery CLI settings from defaults, an optional
// config file, DOCQUERY_ environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/docquery/blobstore/minio"
)

// EnvPrefix prefixes all environment variables, e.g. DOCQUERY_LOG_LEVEL or
// DOCQUERY_MINIO_ENDPOINT.
const EnvPrefix = "DOCQUERY"

// Config is the CLI configuration.
type Config struct {
	// Source is a local path, s3://bucket/key or minio://bucket/key.
	Source string `mapstructure:"source"`
	// Indexes are declarations like "skiplist:age" or "hash:email:unique".
	Indexes     []string     `mapstructure:"indexes"`
	LogLevel    string       `mapstructure:"log_level"`
	LogFormat   string       `mapstructure:"log_format"`
	MetricsAddr string       `mapstructure:"metrics_addr"`
	S3          S3Config     `mapstructure:"s3"`
	MinIO       minio.Config `mapstructure:"minio"`
}

// S3Config holds settings for s3:// sources.
type S3Config struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"source":       "source",
	"index":        "indexes",
	"log-level":    "log_level",
	"log-format":   "log_format",
	"metrics-addr": "metrics_addr",
}

func defaults(v *viper.Viper) {
	v.SetDefault("source", "")
	v.SetDefault("indexes", []string{})
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.secure", false)
	v.SetDefault("minio.region", "")
}

// Load reads the configuration. file may be empty; flags may be nil. Only
// flags the user set override file and environment values.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.Join(fmt.Errorf("config: invalid log level %q", c.LogLevel), err)
	}
	return l, nil
}
