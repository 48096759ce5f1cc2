package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors returned by Load for out-of-range enumerations.
var (
	ErrInvalidMode        = errors.New("config: invalid mode")
	ErrInvalidFormat      = errors.New("config: invalid format")
	ErrInvalidLabel       = errors.New("config: invalid label")
	ErrInvalidLemmaSource = errors.New("config: invalid lemma_source")
	ErrInvalidWorkers     = errors.New("config: invalid workers")
)

// ServeConfig holds configuration for the HTTP API.
type ServeConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Config holds all runtime configuration for a rulecover invocation.
// Values are populated from .rulecover.yaml, RULECOVER_* env vars, and CLI flags.
type Config struct {
	Mode         string      `mapstructure:"mode"`
	Format       string      `mapstructure:"format"`
	Label        string      `mapstructure:"label"`
	RulesOut     string      `mapstructure:"rules_out"`
	Workers      int         `mapstructure:"workers"`
	MaxCoverages int         `mapstructure:"max_coverages"`
	LemmaSource  string      `mapstructure:"lemma_source"`
	Telemetry    string      `mapstructure:"telemetry"`
	DB           string      `mapstructure:"db"`
	Verbose      bool        `mapstructure:"verbose"`
	Serve        ServeConfig `mapstructure:"serve"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("mode", "both")
	viper.SetDefault("format", "text")
	viper.SetDefault("label", "id")
	viper.SetDefault("rules_out", "rules.txt")
	viper.SetDefault("workers", runtime.GOMAXPROCS(0))
	viper.SetDefault("max_coverages", 0)
	viper.SetDefault("lemma_source", "surface")
	viper.SetDefault("telemetry", "")
	viper.SetDefault("db", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("serve.addr", ":8080")
	viper.SetDefault("serve.cors_origins", []string{})

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes enumerations to lower case and checks them, along with
// the worker count. Call it again after overriding fields from flags.
func (c *Config) Validate() error {
	checks := []struct {
		value   *string
		allowed []string
		err     error
	}{
		{&c.Mode, []string{"all", "lrlm", "both"}, ErrInvalidMode},
		{&c.Format, []string{"text", "json"}, ErrInvalidFormat},
		{&c.Label, []string{"id", "comment"}, ErrInvalidLabel},
		{&c.LemmaSource, []string{"surface", "reading"}, ErrInvalidLemmaSource},
	}
	for _, ch := range checks {
		*ch.value = strings.ToLower(*ch.value)
		if !slices.Contains(ch.allowed, *ch.value) {
			return fmt.Errorf("%w: %q (want one of %s)", ch.err, *ch.value, strings.Join(ch.allowed, ", "))
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	return nil
}
