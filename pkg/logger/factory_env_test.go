package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/logger"
)

func TestWithDevelopment(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithDevelopment("api"),
		logger.WithOutput(buf),
	)
	require.NotNil(t, log)

	log.Debug("msg")

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "service=api")
	assert.Contains(t, out, "env=development")
}

func TestWithProduction(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithProduction("api"),
		logger.WithOutput(buf),
	)
	require.NotNil(t, log)

	log.Debug("filtered at info level")
	require.Empty(t, buf.String())

	log.Info("msg")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "production", entry["env"])
}

func TestWithEnvironment(t *testing.T) {
	for _, env := range []string{"production", "prod", "staging", "stage"} {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithEnvironment(env, "api"),
			logger.WithOutput(buf),
		)
		log.Info("msg")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "env %s", env)
		assert.Equal(t, "production", entry["env"], "env %s", env)
	}

	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithEnvironment("local", "api"),
		logger.WithOutput(buf),
	)
	log.Debug("msg")
	assert.Contains(t, buf.String(), "env=development")
}
