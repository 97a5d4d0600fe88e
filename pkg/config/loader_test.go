package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/config"
)

type testConfig struct {
	Host    string   `env:"CFG_TEST_HOST" envDefault:"localhost"`
	Port    int      `env:"CFG_TEST_PORT" envDefault:"5432"`
	Queues  []string `env:"CFG_TEST_QUEUES" envSeparator:","`
	Require string   `env:"CFG_TEST_REQUIRED,required"`
}

func TestLoad(t *testing.T) {
	t.Run("parses env with defaults", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("CFG_TEST_REQUIRED", "set")
		t.Setenv("CFG_TEST_QUEUES", "high,low")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 5432, cfg.Port)
		assert.Equal(t, []string{"high", "low"}, cfg.Queues)
		assert.Equal(t, "set", cfg.Require)
	})

	t.Run("caches per type", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("CFG_TEST_REQUIRED", "first")

		var first testConfig
		require.NoError(t, config.Load(&first))

		// Environment changes after the first load are not observed.
		t.Setenv("CFG_TEST_REQUIRED", "second")

		var second testConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Require)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		config.ResetCache()

		var cfg testConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[testConfig](nil), config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	config.ResetCache()

	assert.Panics(t, func() {
		var cfg testConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("missing file fails", func(t *testing.T) {
		err := config.LoadEnv("testdata/does-not-exist.env")
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrLoadingEnvFiles)
	})
}
