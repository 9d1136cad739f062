package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuildsLoggerAtRequestedLevel(t *testing.T) {
	logger, err := New(Config{Level: "debug", Encoding: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(-1)) // debug level
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "catastrophic", Encoding: "json"})
	assert.Error(t, err)
}

func TestDefaultConfigIsInfoJSON(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Encoding)
}
