package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/client"
	"github.com/ubermorgenland/swagger-mcp/pkg/database"
	"github.com/ubermorgenland/swagger-mcp/pkg/filter"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
)

// Transports.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
)

// Environment variables read by LoadConfig.
const (
	EnvConfigFile  = "SWAGGER_MCP_CONFIG"
	EnvBaseURL     = "API_BASE_URL"
	EnvAPIToken    = "API_TOKEN"
	EnvDatabaseURL = "DATABASE_URL"
	EnvLogLevel    = "LOG_LEVEL"
)

// DefaultBaseURL is used when neither the operator nor the document names a server.
const DefaultBaseURL = "http://localhost:8000"

// Config holds server configuration
type Config struct {
	Spec              string         `toml:"spec"`
	BaseURL           string         `toml:"base_url"`
	APIToken          string         `toml:"api_token"`
	ServerName        string         `toml:"server_name"`
	Instructions      string         `toml:"instructions"`
	Filter            filter.Options `toml:"filter"`
	ExcludeAttributes []string       `toml:"exclude_attributes"`
	Transport         string         `toml:"transport"`
	Host              string         `toml:"host"`
	Port              int            `toml:"port"`
	// Timeout is read from a duration string ("30s") by loadFile.
	Timeout           time.Duration  `toml:"-"`
	DryRun            bool           `toml:"dry_run"`
	Output            string         `toml:"output"`
	LogLevel          string         `toml:"log_level"`
	LogFormat         string         `toml:"log_format"`
	DatabaseURL       string         `toml:"database_url"`

	// ConfigFile is the TOML file the values were read from, if any.
	ConfigFile string `toml:"-"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerName: "swagger_mcp",
		Transport:  TransportStreamableHTTP,
		Host:       "0.0.0.0",
		Port:       8080,
		Timeout:    client.DefaultTimeout,
		Output:     "text",
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// RegisterFlags defines every configuration flag on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("base-url", "", "base URL of the target API (env "+EnvBaseURL+")")
	fs.String("api-token", "", "bearer token sent to the target API (env "+EnvAPIToken+")")
	fs.String("server-name", d.ServerName, "MCP server name")
	fs.String("instructions", "", "instructions advertised to MCP clients")
	fs.StringArray("methods", nil, "HTTP methods to expose, comma separated or repeated (default GET)")
	fs.StringArray("paths", nil, "path globs to include")
	fs.StringArray("exclude-paths", nil, "path globs to exclude")
	fs.StringArray("tags", nil, "tags to include")
	fs.StringArray("exclude-tags", nil, "tags to exclude")
	fs.StringArray("operation-ids", nil, "operation ids to include")
	fs.StringArray("exclude-operation-ids", nil, "operation ids to exclude")
	fs.StringArray("exclude-attributes", nil, "dot-separated response attributes to strip")
	fs.String("transport", d.Transport, "MCP transport: stdio, streamable-http or sse")
	fs.String("host", d.Host, "listen host for HTTP transports")
	fs.Int("port", d.Port, "listen port for HTTP transports")
	fs.Duration("timeout", d.Timeout, "per-request timeout for API calls")
	fs.Bool("dry-run", false, "print the generated tools and exit")
	fs.String("output", d.Output, "dry-run output format: text or json")
	fs.String("config", "", "TOML config file (env "+EnvConfigFile+")")
	fs.String("log-level", d.LogLevel, "log level: trace, debug, info, warn, error (env "+EnvLogLevel+")")
	fs.String("log-format", d.LogFormat, "log format: console or json")
	fs.String("database-url", "", "Postgres URL of the spec store (env "+EnvDatabaseURL+")")
}

// LoadConfig merges defaults, the TOML config file, environment variables
// and explicitly set flags, in increasing order of precedence.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv(EnvConfigFile)
	if fs.Changed("config") {
		path, _ = fs.GetString("config")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.applyFlags(fs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeConfig, "cannot read config file")
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeConfig, "invalid config file "+path)
	}
	var extra struct {
		Timeout string `toml:"timeout"`
	}
	if err := toml.Unmarshal(data, &extra); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeConfig, "invalid config file "+path)
	}
	if extra.Timeout != "" {
		d, err := time.ParseDuration(extra.Timeout)
		if err != nil {
			return apperrors.Config("invalid timeout in config file", extra.Timeout)
		}
		c.Timeout = d
	}
	c.ConfigFile = path
	return nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.BaseURL, EnvBaseURL)
	setFromEnv(&c.APIToken, EnvAPIToken)
	setFromEnv(&c.DatabaseURL, EnvDatabaseURL)
	setFromEnv(&c.LogLevel, EnvLogLevel)
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	var firstErr error
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			v, err := fs.GetString(name)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if fs.Changed(name) {
			v, err := fs.GetStringArray(name)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			*dst = v
		}
	}

	str("base-url", &c.BaseURL)
	str("api-token", &c.APIToken)
	str("server-name", &c.ServerName)
	str("instructions", &c.Instructions)
	list("methods", &c.Filter.Methods)
	list("paths", &c.Filter.Paths)
	list("exclude-paths", &c.Filter.ExcludePaths)
	list("tags", &c.Filter.Tags)
	list("exclude-tags", &c.Filter.ExcludeTags)
	list("operation-ids", &c.Filter.OperationIDs)
	list("exclude-operation-ids", &c.Filter.ExcludeOperationIDs)
	list("exclude-attributes", &c.ExcludeAttributes)
	str("transport", &c.Transport)
	str("host", &c.Host)
	str("output", &c.Output)
	str("log-level", &c.LogLevel)
	str("log-format", &c.LogFormat)
	str("database-url", &c.DatabaseURL)

	if fs.Changed("port") {
		v, err := fs.GetInt("port")
		if err != nil && firstErr == nil {
			firstErr = err
		}
		c.Port = v
	}
	if fs.Changed("timeout") {
		v, err := fs.GetDuration("timeout")
		if err != nil && firstErr == nil {
			firstErr = err
		}
		c.Timeout = v
	}
	if fs.Changed("dry-run") {
		v, err := fs.GetBool("dry-run")
		if err != nil && firstErr == nil {
			firstErr = err
		}
		c.DryRun = v
	}
	if firstErr != nil {
		return apperrors.Wrap(firstErr, apperrors.ErrorTypeConfig, "invalid flag")
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportStreamableHTTP, TransportSSE:
	default:
		return apperrors.Config("unknown transport", c.Transport)
	}
	switch c.Output {
	case "text", "json":
	default:
		return apperrors.Config("unknown output format", c.Output)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return apperrors.Config("invalid port", fmt.Sprint(c.Port))
	}
	if c.Timeout <= 0 {
		return apperrors.Config("timeout must be positive", c.Timeout.String())
	}
	if strings.TrimSpace(c.ServerName) == "" {
		return apperrors.Config("server name is required", "")
	}
	return nil
}

// Addr is the listen address of the HTTP transports.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewLogger builds the logger described by the configuration.
func (c *Config) NewLogger() *logging.Logger {
	return logging.New(logging.Config{Level: c.LogLevel, Format: c.LogFormat})
}

// LogConfiguration logs the current configuration
func (c *Config) LogConfiguration(logger *logging.Logger) {
	e := logger.Info().
		Str("spec", c.Spec).
		Str("transport", c.Transport).
		Str("server_name", c.ServerName).
		Dur("timeout", c.Timeout)
	if c.ConfigFile != "" {
		e = e.Str("config_file", c.ConfigFile)
	}
	if c.BaseURL != "" {
		e = e.Str("base_url", c.BaseURL)
	}
	if c.APIToken != "" {
		e = e.Str("api_token", logging.Mask(c.APIToken))
	}
	if c.DatabaseURL != "" {
		e = e.Str("database_url", database.RedactURL(c.DatabaseURL))
	}
	if c.Transport != TransportStdio {
		e = e.Str("addr", c.Addr())
	}
	e.Msg("configuration loaded")
}
