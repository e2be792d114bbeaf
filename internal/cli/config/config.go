package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/metamodel/pkg/facets"
	"github.com/conduit-lang/metamodel/pkg/layout"
	"github.com/conduit-lang/metamodel/pkg/progmodel"
	"github.com/conduit-lang/metamodel/pkg/scan"
	"github.com/conduit-lang/metamodel/pkg/validate"
)

// EnvPrefix prefixes every environment variable override
const EnvPrefix = "METAMODEL"

// Config represents the metamodel configuration
type Config struct {
	Packages   []string        `mapstructure:"packages"`
	Exclude    []string        `mapstructure:"exclude"`
	LayoutsDir string          `mapstructure:"layouts_dir"`
	Validation validate.Config `mapstructure:"validation"`
	Facets     FacetsConfig    `mapstructure:"facets"`
	Model      ModelConfig     `mapstructure:"programming_model"`
	Logging    LoggingConfig   `mapstructure:"logging"`
	Export     ExportConfig    `mapstructure:"export"`
}

// FacetsConfig holds the defaults factories fall back to
type FacetsConfig struct {
	PagedStandalone       int `mapstructure:"paged_standalone"`
	PagedParented         int `mapstructure:"paged_parented"`
	AutoCompleteMinLength int `mapstructure:"autocomplete_min_length"`
}

// ModelConfig adjusts the default programming model
type ModelConfig struct {
	// Exclude names factories, post-processors and validators to leave out
	Exclude []string `mapstructure:"exclude"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ExportConfig represents the targets snapshots are exported to
type ExportConfig struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Kind        string `mapstructure:"kind"`
	DSN         string `mapstructure:"dsn"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// RedisConfig represents redis configuration
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Load loads the configuration from metamodel.yml or metamodel.yaml in the
// working directory. An explicit path takes precedence when not empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metamodel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	fc := facets.DefaultConfig()
	vc := validate.DefaultConfig()

	v.SetDefault("packages", []string{"**"})
	v.SetDefault("exclude", []string{})
	v.SetDefault("layouts_dir", "")
	v.SetDefault("validation.explicit_object_type", vc.ExplicitObjectType)
	v.SetDefault("validation.check_orphans", vc.CheckOrphans)
	v.SetDefault("validation.allow_deprecated", vc.AllowDeprecated)
	v.SetDefault("validation.check_unknown_types", vc.CheckUnknownTypes)
	v.SetDefault("facets.paged_standalone", fc.PagedStandalone)
	v.SetDefault("facets.paged_parented", fc.PagedParented)
	v.SetDefault("facets.autocomplete_min_length", fc.AutoCompleteMinLength)
	v.SetDefault("programming_model.exclude", []string{})
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.development", false)
	v.SetDefault("export.database.kind", "sqlite3")
	v.SetDefault("export.database.dsn", "metamodel.db")
	v.SetDefault("export.database.table_prefix", "metamodel_")
	v.SetDefault("export.redis.addr", "localhost:6379")
	v.SetDefault("export.redis.db", 0)
	v.SetDefault("export.redis.prefix", "metamodel:")
	v.SetDefault("export.redis.ttl", 0)
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if len(cfg.Packages) == 0 {
		return fmt.Errorf("packages must list at least one pattern")
	}
	if _, err := scan.NewScanner(cfg.Packages, cfg.Exclude); err != nil {
		return err
	}
	if cfg.Facets.PagedStandalone <= 0 || cfg.Facets.PagedParented <= 0 {
		return fmt.Errorf("facets page sizes must be positive, got %d and %d",
			cfg.Facets.PagedStandalone, cfg.Facets.PagedParented)
	}
	if cfg.Facets.AutoCompleteMinLength < 0 {
		return fmt.Errorf("facets.autocomplete_min_length must not be negative, got %d", cfg.Facets.AutoCompleteMinLength)
	}
	if len(cfg.Model.Exclude) > 0 {
		known := make(map[string]bool)
		for _, name := range progmodel.Default(progmodel.DefaultConfig()).Names() {
			known[name] = true
		}
		for _, name := range cfg.Model.Exclude {
			if !known[name] {
				return fmt.Errorf("programming_model.exclude: unknown factory, post-processor or validator %q", name)
			}
		}
	}
	if _, err := parseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.LayoutsDir != "" {
		info, err := os.Stat(cfg.LayoutsDir)
		if err != nil {
			return fmt.Errorf("layouts_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("layouts_dir %s is not a directory", cfg.LayoutsDir)
		}
	}
	if cfg.Export.Redis.TTL < 0 {
		return fmt.Errorf("export.redis.ttl must not be negative, got %s", cfg.Export.Redis.TTL)
	}
	return nil
}

// Scanner builds the package scanner described by the configuration
func (c *Config) Scanner() (*scan.Scanner, error) {
	return scan.NewScanner(c.Packages, c.Exclude)
}

// ProgrammingModel returns the programming model settings. Layout files are
// read from LayoutsDir when it is set.
func (c *Config) ProgrammingModel() progmodel.Config {
	pm := progmodel.Config{
		Facets: facets.Config{
			PagedStandalone:       c.Facets.PagedStandalone,
			PagedParented:         c.Facets.PagedParented,
			AutoCompleteMinLength: c.Facets.AutoCompleteMinLength,
		},
		Validation: c.Validation,
	}
	if c.LayoutsDir != "" {
		pm.Facets.Layouts = layout.NewReader(os.DirFS(c.LayoutsDir))
	}
	return pm
}

// BuildProgrammingModel creates the default programming model without the
// excluded factories, post-processors and validators
func (c *Config) BuildProgrammingModel() *progmodel.ProgrammingModel {
	pm := progmodel.Default(c.ProgrammingModel())
	if len(c.Model.Exclude) == 0 {
		return pm
	}
	return pm.Without(c.Model.Exclude...)
}

// Logger builds a zap logger for the configured level. Verbose forces debug.
func (c *Config) Logger(verbose bool) (*zap.Logger, error) {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var zc zap.Config
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func parseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, err
	}
	return level, nil
}
