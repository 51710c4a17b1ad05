package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const (
	DefaultServicePort       = 3000
	DefaultDownstreamTimeout = 30 * time.Second
)

// Store backends.
const (
	StoreLevelDB  = "leveldb"
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Downstream kinds.
const (
	DownstreamHello = "hello"
	DownstreamHTTP  = "http"
)

// ServerConfig contains the settings for the local HTTP front end
type ServerConfig struct {
	Host           string `toml:"host" json:"host" mapstructure:"host" flag:"host"`
	Port           int    `toml:"port" json:"port" mapstructure:"port" flag:"port" validate:"min=1,max=65535"`
	MaxConcurrency int    `toml:"max_concurrency" json:"max_concurrency" mapstructure:"max_concurrency" flag:"max-concurrency" validate:"min=0"`
}

// StoreConfig selects and configures the counter store
type StoreConfig struct {
	Backend          string `toml:"backend" json:"backend" mapstructure:"backend" flag:"store" validate:"oneof=leveldb memory dynamodb"`
	DataDir          string `toml:"data_dir" json:"data_dir" mapstructure:"data_dir" flag:"data-dir"`
	TableName        string `toml:"table_name" json:"table_name" mapstructure:"table_name" flag:"table"`
	Region           string `toml:"region" json:"region" mapstructure:"region" flag:"region"`
	DynamoDBEndpoint string `toml:"dynamodb_endpoint" json:"dynamodb_endpoint" mapstructure:"dynamodb_endpoint" flag:"dynamodb-endpoint" validate:"omitempty,url"`
}

// DownstreamConfig selects the handler counted requests are forwarded to
type DownstreamConfig struct {
	Kind    string        `toml:"kind" json:"kind" mapstructure:"kind" flag:"downstream" validate:"oneof=hello http"`
	URL     string        `toml:"url" json:"url" mapstructure:"url" flag:"downstream-url" validate:"omitempty,url"`
	Timeout time.Duration `toml:"timeout" json:"timeout" mapstructure:"timeout" flag:"downstream-timeout" validate:"min=0"`
}

// TelemetryConfig contains error reporting settings
type TelemetryConfig struct {
	SentryDSN         string `toml:"sentry_dsn" json:"sentry_dsn" mapstructure:"sentry_dsn" flag:"sentry-dsn"`
	SentryEnvironment string `toml:"sentry_environment" json:"sentry_environment" mapstructure:"sentry_environment" flag:"sentry-environment"`
}

// Node represents the full configuration for a local hit counter
type Node struct {
	// HTTP front end
	Server ServerConfig `toml:"server" json:"server" mapstructure:"server"`

	// Where hits are counted
	Store StoreConfig `toml:"store" json:"store" mapstructure:"store"`

	// Where counted requests go
	Downstream DownstreamConfig `toml:"downstream" json:"downstream" mapstructure:"downstream"`

	// Error reporting
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry" mapstructure:"telemetry"`

	// Logging level for all subsystems
	LogLevel string `toml:"log_level" json:"log_level" mapstructure:"log_level" flag:"log-level"`
}

// Addr is the address the server listens on.
func (cfg *Node) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
}

// LoadConfig is a comprehensive method that handles the entire configuration loading process
// flags > environment variables > config file > defaults
// It takes care of:
// 1. Loading defaults specified in code
// 2. Loading config from file if provided via --config, and from the environment
// 3. Setting up the default data directory if it is not provided
// 4. Applying CLI flag overrides to config state
// 5. Validating the final configuration
func LoadConfig(cCtx *cli.Context) (*Node, error) {
	cfg, err := load(cCtx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Apply CLI flag overrides
	fromCLI(cCtx, cfg)

	// Set up default directories (creates them if they don't exist)
	if err := setupDefaultDirectories(cfg); err != nil {
		return nil, fmt.Errorf("failed to set up default directories: %w", err)
	}

	// Validate the final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs validation on the configuration values and returns any errors.
// This can be called before using the configuration to ensure all required values are set.
func (cfg *Node) Validate() error {
	var errs error
	if err := validateConfig(cfg); err != nil {
		errs = multierror.Append(errs, err)
	}

	switch cfg.Store.Backend {
	case StoreLevelDB:
		if cfg.Store.DataDir == "" {
			errs = multierror.Append(errs, errors.New("data directory path is required for the leveldb store"))
		}
	case StoreDynamoDB:
		if cfg.Store.TableName == "" {
			errs = multierror.Append(errs, errors.New("table name is required for the dynamodb store"))
		}
	}

	if cfg.Downstream.Kind == DownstreamHTTP && cfg.Downstream.URL == "" {
		errs = multierror.Append(errs, errors.New("downstream URL is required for the http downstream"))
	}

	return errs
}

// load reads the configuration from the environment and, if path is not
// empty, the config file at path. It preserves default values for fields not
// specified in either.
func load(path string) (*Node, error) {
	v, err := setupViperWithDefaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		if stat, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file path does not exist: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file at path %s: %w", path, err)
		} else if stat.IsDir() {
			return nil, fmt.Errorf("config file path points to a directory: %s", path)
		}

		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := new(Node)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// newDefault creates a new configuration with pure default values.
func newDefault() *Node {
	return &Node{
		Server: ServerConfig{
			Port: DefaultServicePort,
		},
		Store: StoreConfig{
			Backend: StoreLevelDB,
			// No default for the data dir - setupDefaultDirectories sets it
		},
		Downstream: DownstreamConfig{
			Kind:    DownstreamHello,
			Timeout: DefaultDownstreamTimeout,
		},
		LogLevel: "info",
	}
}

// fromCLI loads configuration values from CLI flags
func fromCLI(ctx *cli.Context, cfg *Node) {
	// Server settings
	if ctx.IsSet("host") {
		cfg.Server.Host = ctx.String("host")
	}
	if ctx.IsSet("port") {
		cfg.Server.Port = ctx.Int("port")
	}
	if ctx.IsSet("max-concurrency") {
		cfg.Server.MaxConcurrency = ctx.Int("max-concurrency")
	}

	// Store settings
	if ctx.IsSet("store") {
		cfg.Store.Backend = ctx.String("store")
	}
	if ctx.IsSet("data-dir") {
		cfg.Store.DataDir = ctx.String("data-dir")
	}
	if ctx.IsSet("table") {
		cfg.Store.TableName = ctx.String("table")
	}
	if ctx.IsSet("region") {
		cfg.Store.Region = ctx.String("region")
	}
	if ctx.IsSet("dynamodb-endpoint") {
		cfg.Store.DynamoDBEndpoint = ctx.String("dynamodb-endpoint")
	}

	// Downstream settings
	if ctx.IsSet("downstream") {
		cfg.Downstream.Kind = ctx.String("downstream")
	}
	if ctx.IsSet("downstream-url") {
		cfg.Downstream.URL = ctx.String("downstream-url")
	}
	if ctx.IsSet("downstream-timeout") {
		cfg.Downstream.Timeout = ctx.Duration("downstream-timeout")
	}

	// Telemetry settings
	if ctx.IsSet("sentry-dsn") {
		cfg.Telemetry.SentryDSN = ctx.String("sentry-dsn")
	}
	if ctx.IsSet("sentry-environment") {
		cfg.Telemetry.SentryEnvironment = ctx.String("sentry-environment")
	}

	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
}

// setupViperWithDefaults creates a new Viper instance with default values and environment bindings
func setupViperWithDefaults() (*viper.Viper, error) {
	v := viper.New()

	// Define specific environment variable mappings
	envMappings := map[string]string{
		// Server
		"server.host":            "HOST",
		"server.port":            "PORT",
		"server.max_concurrency": "MAX_CONCURRENCY",

		// Store
		"store.backend":           "STORE",
		"store.data_dir":          "DATA_DIR",
		"store.table_name":        "TABLE_NAME",
		"store.region":            "REGION",
		"store.dynamodb_endpoint": "DYNAMODB_ENDPOINT",

		// Downstream
		"downstream.kind":    "DOWNSTREAM",
		"downstream.url":     "DOWNSTREAM_URL",
		"downstream.timeout": "DOWNSTREAM_TIMEOUT",

		// Telemetry
		"telemetry.sentry_dsn":         "SENTRY_DSN",
		"telemetry.sentry_environment": "SENTRY_ENVIRONMENT",

		"log_level": "LOG_LEVEL",
	}

	// Create the aliases for environment variables
	for key, envVar := range envMappings {
		if err := v.BindEnv(key, "HITCOUNTER_"+envVar); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", key, err)
		}
	}

	// Start with default values
	defaultCfg := newDefault()

	// Set default values in Viper
	v.SetDefault("server.host", defaultCfg.Server.Host)
	v.SetDefault("server.port", defaultCfg.Server.Port)
	v.SetDefault("server.max_concurrency", defaultCfg.Server.MaxConcurrency)
	v.SetDefault("store.backend", defaultCfg.Store.Backend)
	v.SetDefault("downstream.kind", defaultCfg.Downstream.Kind)
	v.SetDefault("downstream.timeout", defaultCfg.Downstream.Timeout)
	v.SetDefault("log_level", defaultCfg.LogLevel)

	return v, nil
}

// setupDefaultDirectories configures the default data directory for the
// leveldb store if it is not already set
func setupDefaultDirectories(cfg *Node) error {
	if cfg.Store.Backend != StoreLevelDB || cfg.Store.DataDir != "" {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("getting user home directory: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".hitcounter")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating default data directory %s: %w", dataDir, err)
	}
	cfg.Store.DataDir = dataDir

	return nil
}
