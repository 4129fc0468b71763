// Package config loads registryctl settings from an optional YAML file and
// MODELREG_* environment variables.
package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"modelregistry/internal/blob"
	"modelregistry/internal/ledger"
)

// EnvPrefix namespaces environment overrides, e.g. MODELREG_REGISTRY_ROOT.
const EnvPrefix = "MODELREG"

// Config holds the full application configuration.
type Config struct {
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Blob     BlobConfig     `yaml:"blob" mapstructure:"blob"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// RegistryConfig locates the registry.
type RegistryConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
	// Lock takes a flock on <root>/.registry.lock around each submission
	// when the filesystem driver is used.
	Lock bool `yaml:"lock" mapstructure:"lock"`
}

// BlobConfig selects the artifact backend.
type BlobConfig struct {
	Driver string   `yaml:"driver" mapstructure:"driver"`
	S3     S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config configures the S3/MinIO backend.
type S3Config struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	PathStyle       bool   `yaml:"path_style" mapstructure:"path_style"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
}

// LedgerConfig selects the submission ledger.
type LedgerConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// Load reads configuration from path (or ./registry.yaml when path is empty)
// and the environment. A missing default file is not an error; a missing
// explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("registry")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("registry.root", "./models")
	v.SetDefault("registry.lock", true)
	v.SetDefault("blob.driver", string(blob.DriverFilesystem))
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.prefix", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("blob.s3.access_key_id", "")
	v.SetDefault("blob.s3.secret_access_key", "")
	v.SetDefault("ledger.driver", string(ledger.DriverNone))
	v.SetDefault("ledger.sqlite_path", "")
	v.SetDefault("ledger.postgres_dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.textfile", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if cfg.Ledger.SQLitePath == "" {
		cfg.Ledger.SQLitePath = filepath.Join(cfg.Registry.Root, "ledger.db")
	}
	return &cfg, nil
}

// Validate rejects unknown drivers and incomplete backend settings.
func (c *Config) Validate() error {
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
		if c.Registry.Root == "" && blob.Driver(c.Blob.Driver) == blob.DriverFilesystem {
			return eris.New("config: registry.root is required for the fs driver")
		}
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return eris.New("config: blob.s3.bucket is required for the s3 driver")
		}
	default:
		return eris.Errorf("config: unknown blob.driver %q", c.Blob.Driver)
	}
	switch ledger.Driver(c.Ledger.Driver) {
	case "", ledger.DriverNone, ledger.DriverSQLite:
	case ledger.DriverPostgres:
		if c.Ledger.PostgresDSN == "" {
			return eris.New("config: ledger.postgres_dsn is required for the postgres ledger")
		}
	default:
		return eris.Errorf("config: unknown ledger.driver %q", c.Ledger.Driver)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return eris.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

// BlobOptions translates the settings for blob.Open.
func (c *Config) BlobOptions() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Registry.Root,
		S3: blob.S3Config{
			Region:          c.Blob.S3.Region,
			Bucket:          c.Blob.S3.Bucket,
			Prefix:          c.Blob.S3.Prefix,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			PathStyle:       c.Blob.S3.PathStyle,
		},
	}
}

// LedgerOptions translates the settings for ledger.Open.
func (c *Config) LedgerOptions() ledger.Config {
	return ledger.Config{
		Driver:      ledger.Driver(c.Ledger.Driver),
		SQLitePath:  c.Ledger.SQLitePath,
		PostgresDSN: c.Ledger.PostgresDSN,
	}
}

// NewLogger builds a zap logger: console format gets the development config,
// anything else the production (JSON) config.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}
