package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "core.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, "ring:\n  capacity: 1024\n")

	loader, err := Load(path)
	require.NoError(t, err)

	cfg := loader.Current()
	assert.Equal(t, uint64(1024), cfg.Ring.Capacity)
	assert.Equal(t, 8192, int(cfg.RUDP.Window))
	assert.Equal(t, 64, cfg.RUDP.Batch)
}

func TestHotReloadAppliesMutableFieldsAndRejectsImmutable(t *testing.T) {
	path := writeConfig(t, "ring:\n  capacity: 1024\n  num_consumers: 1\nrudp:\n  window: 8192\n")

	loader, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("ring:\n  capacity: 2048\n  num_consumers: 1\nrudp:\n  window: 16384\n"), 0o644))

	require.Eventually(t, func() bool {
		return loader.Current().RUDP.Window == 16384
	}, 2*time.Second, 10*time.Millisecond)

	cfg := loader.Current()
	assert.Equal(t, uint64(1024), cfg.Ring.Capacity, "ring.capacity must not change live")
	assert.Equal(t, uint32(16384), cfg.RUDP.Window, "rudp.window is safe to hot-reload")
}
