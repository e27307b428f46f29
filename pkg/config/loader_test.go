package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/paygate/pkg/config"
)

type providerConfig struct {
	AccessToken string        `env:"CFGTEST_ACCESS_TOKEN" envDefault:"token"`
	Timeout     time.Duration `env:"CFGTEST_TIMEOUT" envDefault:"5s"`
	Sandbox     bool          `env:"CFGTEST_SANDBOX" envDefault:"false"`
}

type defaultsConfig struct {
	Currency string `env:"CFGTEST_CURRENCY" envDefault:"COP"`
	Retries  int    `env:"CFGTEST_RETRIES" envDefault:"2"`
}

type cachedConfig struct {
	Value string `env:"CFGTEST_CACHED" envDefault:"default"`
}

type requiredConfig struct {
	Secret string `env:"CFGTEST_REQUIRED_SECRET,required"`
}

type fileConfig struct {
	AppURL string `env:"CFGTEST_APP_URL"`
}

func TestLoad_Success(t *testing.T) {
	t.Setenv("CFGTEST_ACCESS_TOKEN", "APP_USR-123")
	t.Setenv("CFGTEST_TIMEOUT", "10s")
	t.Setenv("CFGTEST_SANDBOX", "true")

	var cfg providerConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "APP_USR-123", cfg.AccessToken)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.True(t, cfg.Sandbox)
}

func TestLoad_DefaultValues(t *testing.T) {
	os.Unsetenv("CFGTEST_CURRENCY")
	os.Unsetenv("CFGTEST_RETRIES")

	var cfg defaultsConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "COP", cfg.Currency)
	assert.Equal(t, 2, cfg.Retries)
}

func TestLoad_CachesPerType(t *testing.T) {
	config.ResetCache()
	t.Setenv("CFGTEST_CACHED", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("CFGTEST_CACHED", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value, "second load must come from the cache")

	config.ResetCache()

	var third cachedConfig
	require.NoError(t, config.Load(&third))
	assert.Equal(t, "second", third.Value, "reset must force a fresh parse")
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("CFGTEST_REQUIRED_SECRET")

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	t.Run("failure is not cached", func(t *testing.T) {
		t.Setenv("CFGTEST_REQUIRED_SECRET", "s3cr3t")

		var cfg requiredConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "s3cr3t", cfg.Secret)
	})
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *providerConfig
	err := config.Load(cfg)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}

func TestMustLoad_Panics(t *testing.T) {
	os.Unsetenv("CFGTEST_REQUIRED_SECRET")
	config.ResetCache()

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("loads values from file", func(t *testing.T) {
		os.Unsetenv("CFGTEST_APP_URL")
		t.Cleanup(func() { os.Unsetenv("CFGTEST_APP_URL") })
		config.ResetCache()

		path := filepath.Join(t.TempDir(), ".env.test")
		require.NoError(t, os.WriteFile(path, []byte("CFGTEST_APP_URL=https://app.example.com\n"), 0o600))

		require.NoError(t, config.LoadEnv(path))

		var cfg fileConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "https://app.example.com", cfg.AppURL)
	})

	t.Run("does not override existing variables", func(t *testing.T) {
		t.Setenv("CFGTEST_APP_URL", "https://from-env.example.com")
		config.ResetCache()

		path := filepath.Join(t.TempDir(), ".env.test")
		require.NoError(t, os.WriteFile(path, []byte("CFGTEST_APP_URL=https://from-file.example.com\n"), 0o600))

		require.NoError(t, config.LoadEnv(path))

		var cfg fileConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "https://from-env.example.com", cfg.AppURL)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		err := config.LoadEnv(filepath.Join(t.TempDir(), "nope.env"))
		assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
	})
}
