// Package config resolves runtime configuration for the CLI commands.
//
// Precedence, lowest first: built-in defaults, the YAML config file,
// environment variables (a .env file in the working directory is read if
// present), then flags set on the command line.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dtnitsch/quote-origin/models"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const (
	EnvBackendURL  = "QUOTE_BACKEND_URL"
	EnvDBPath      = "QUOTE_DB_PATH"
	EnvListenAddr  = "QUOTE_LISTEN_ADDR"
	EnvSweepDelay  = "QUOTE_SWEEP_DELAY"
	EnvHTTPTimeout = "QUOTE_HTTP_TIMEOUT"
	EnvPatterns    = "QUOTE_PATTERNS"
	EnvKeywordsMax = "QUOTE_KEYWORDS_MAX"
)

// Overrides are values given on the command line. Nil means not set.
type Overrides struct {
	BackendURL  *string
	HTTPTimeout *time.Duration
	SweepDelay  *time.Duration
	DBPath      *string
	ListenAddr  *string
	Patterns    *string
	KeywordsMax *int
}

// FromCLI loads the configuration named by --config and applies every flag
// the user set.
func FromCLI(c *cli.Context) (models.Config, error) {
	var o Overrides
	if c.IsSet("backend-url") {
		v := c.String("backend-url")
		o.BackendURL = &v
	}
	if c.IsSet("http-timeout") {
		v := c.Duration("http-timeout")
		o.HTTPTimeout = &v
	}
	if c.IsSet("sweep-delay") {
		v := c.Duration("sweep-delay")
		o.SweepDelay = &v
	}
	if c.IsSet("db") {
		v := c.String("db")
		o.DBPath = &v
	}
	if c.IsSet("listen") {
		v := c.String("listen")
		o.ListenAddr = &v
	}
	if c.IsSet("patterns") {
		v := c.String("patterns")
		o.Patterns = &v
	}
	if c.IsSet("keywords") {
		v := c.Int("keywords")
		o.KeywordsMax = &v
	}
	return Load(c.String("config"), o)
}

// Load resolves the configuration from path, the environment and o.
func Load(path string, o Overrides) (models.Config, error) {
	_ = godotenv.Load()

	cfg, err := models.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyOverrides(&cfg, o)
	return cfg, nil
}

func applyEnv(cfg *models.Config) error {
	cfg.BackendURL = getEnv(EnvBackendURL, cfg.BackendURL)
	cfg.DBPath = getEnv(EnvDBPath, cfg.DBPath)
	cfg.ListenAddr = getEnv(EnvListenAddr, cfg.ListenAddr)
	cfg.Extraction.Patterns = getEnv(EnvPatterns, cfg.Extraction.Patterns)

	var err error
	if cfg.SweepDelay, err = getEnvDuration(EnvSweepDelay, cfg.SweepDelay); err != nil {
		return err
	}
	if cfg.HTTPTimeout, err = getEnvDuration(EnvHTTPTimeout, cfg.HTTPTimeout); err != nil {
		return err
	}
	if cfg.KeywordsMax, err = getEnvInt(EnvKeywordsMax, cfg.KeywordsMax); err != nil {
		return err
	}
	return nil
}

func applyOverrides(cfg *models.Config, o Overrides) {
	if o.BackendURL != nil {
		cfg.BackendURL = *o.BackendURL
	}
	if o.HTTPTimeout != nil {
		cfg.HTTPTimeout = *o.HTTPTimeout
	}
	if o.SweepDelay != nil {
		cfg.SweepDelay = *o.SweepDelay
	}
	if o.DBPath != nil {
		cfg.DBPath = *o.DBPath
	}
	if o.ListenAddr != nil {
		cfg.ListenAddr = *o.ListenAddr
	}
	if o.Patterns != nil {
		cfg.Extraction.Patterns = *o.Patterns
	}
	if o.KeywordsMax != nil {
		cfg.KeywordsMax = *o.KeywordsMax
	}
}

// getEnv returns the variable's value, or defaultValue when unset or empty.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
