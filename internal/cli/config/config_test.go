package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
}

func TestLoad(t *testing.T) {
	// No config file: defaults apply
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"**"}, cfg.Packages)
	assert.Empty(t, cfg.LayoutsDir)
	assert.True(t, cfg.Validation.CheckOrphans)
	assert.False(t, cfg.Validation.ExplicitObjectType)
	assert.Equal(t, 25, cfg.Facets.PagedStandalone)
	assert.Equal(t, 12, cfg.Facets.PagedParented)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "sqlite3", cfg.Export.Database.Kind)
	assert.Equal(t, "metamodel:", cfg.Export.Redis.Prefix)
	assert.Zero(t, cfg.Export.Redis.TTL)
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "layouts"), 0o755))

	configContent := `
packages:
  - example.com/shop/**
exclude:
  - example.com/shop/internal/**
layouts_dir: layouts
validation:
  explicit_object_type: true
  check_orphans: false
facets:
  paged_standalone: 50
programming_model:
  exclude:
    - HideMethod
    - DefaultFromType
logging:
  level: debug
  development: true
export:
  database:
    kind: postgres
    dsn: postgres://localhost/metamodel
  redis:
    addr: redis:6379
    ttl: 1h
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "metamodel.yaml"), []byte(configContent), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"example.com/shop/**"}, cfg.Packages)
	assert.Equal(t, []string{"example.com/shop/internal/**"}, cfg.Exclude)
	assert.Equal(t, "layouts", cfg.LayoutsDir)
	assert.True(t, cfg.Validation.ExplicitObjectType)
	assert.False(t, cfg.Validation.CheckOrphans)
	assert.True(t, cfg.Validation.CheckUnknownTypes, "unset keys keep their default")
	assert.Equal(t, 50, cfg.Facets.PagedStandalone)
	assert.Equal(t, 12, cfg.Facets.PagedParented)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "postgres", cfg.Export.Database.Kind)
	assert.Equal(t, "redis:6379", cfg.Export.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Export.Redis.TTL)

	pm := cfg.ProgrammingModel()
	assert.Equal(t, 50, pm.Facets.PagedStandalone)
	assert.NotNil(t, pm.Facets.Layouts)
	assert.True(t, pm.Validation.ExplicitObjectType)

	assert.Equal(t, []string{"HideMethod", "DefaultFromType"}, cfg.Model.Exclude)
	names := cfg.BuildProgrammingModel().Names()
	assert.NotContains(t, names, "HideMethod")
	assert.NotContains(t, names, "DefaultFromType")
	assert.Contains(t, names, "DisableMethod")

	scanner, err := cfg.Scanner()
	require.NoError(t, err)
	assert.True(t, scanner.Matches("example.com/shop/orders"))
	assert.False(t, scanner.Matches("example.com/shop/internal/db"))
}

func TestLoadExplicitPath(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	path := filepath.Join(tmpDir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)

	_, err = Load(filepath.Join(tmpDir, "missing.yml"))
	assert.Error(t, err, "an explicit file must exist")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("METAMODEL_LOGGING_LEVEL", "info")
	t.Setenv("METAMODEL_EXPORT_REDIS_PREFIX", "app:")
	t.Setenv("METAMODEL_FACETS_PAGED_PARENTED", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "app:", cfg.Export.Redis.Prefix)
	assert.Equal(t, 7, cfg.Facets.PagedParented)
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		return Config{
			Packages: []string{"**"},
			Facets:   FacetsConfig{PagedStandalone: 25, PagedParented: 12},
			Logging:  LoggingConfig{Level: "warn"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "no packages",
			mutate:  func(c *Config) { c.Packages = nil },
			wantErr: "packages must list at least one pattern",
		},
		{
			name:    "invalid pattern",
			mutate:  func(c *Config) { c.Exclude = []string{"[unclosed"} },
			wantErr: `invalid package pattern "[unclosed"`,
		},
		{
			name:    "zero page size",
			mutate:  func(c *Config) { c.Facets.PagedParented = 0 },
			wantErr: "facets page sizes must be positive, got 25 and 0",
		},
		{
			name:    "negative autocomplete length",
			mutate:  func(c *Config) { c.Facets.AutoCompleteMinLength = -1 },
			wantErr: "facets.autocomplete_min_length must not be negative, got -1",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "logging.level",
		},
		{
			name:    "missing layouts dir",
			mutate:  func(c *Config) { c.LayoutsDir = filepath.Join(t.TempDir(), "nope") },
			wantErr: "layouts_dir",
		},
		{
			name:    "unknown programming model entry",
			mutate:  func(c *Config) { c.Model.Exclude = []string{"HideMethod", "HideMethods"} },
			wantErr: `programming_model.exclude: unknown factory, post-processor or validator "HideMethods"`,
		},
		{
			name:    "negative ttl",
			mutate:  func(c *Config) { c.Export.Redis.TTL = -time.Second },
			wantErr: "export.redis.ttl must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "error"}}

	logger, err := cfg.Logger(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))

	verbose, err := cfg.Logger(true)
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))

	cfg.Logging.Level = "loud"
	_, err = cfg.Logger(false)
	assert.Error(t, err)
}
