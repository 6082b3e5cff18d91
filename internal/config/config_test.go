package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeTempYAML(t, `
nodes:
  - localhost:8091
buckets:
  - name: bucket
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "1s", cfg.Refresh.TickInterval.String())
	assert.Equal(t, 5, cfg.Refresh.BootstrapMaxTry)
	assert.Equal(t, 2.0, cfg.Observe.DelayMultiplier)
	assert.False(t, cfg.Observe.FailFastOnTransportError)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeTempYAML(t, `
nodes:
  - 1.2.3.4:8091
  - 5.6.7.8:8091
buckets:
  - name: bucket-a
    password: hunter2
refresh:
  tick_interval: 500ms
observe:
  delay_base: 5ms
  delay_max: 1s
  delay_multiplier: 1.5
  fail_fast_on_transport_error: true
log:
  level: debug
  format: text
  output: stdout
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"1.2.3.4:8091", "5.6.7.8:8091"}, cfg.Nodes)
	assert.Equal(t, "bucket-a", cfg.Buckets[0].Name)
	assert.Equal(t, "hunter2", cfg.Buckets[0].Password)
	assert.Equal(t, "500ms", cfg.Refresh.TickInterval.String())
	assert.True(t, cfg.Observe.FailFastOnTransportError)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_MissingNodesFailsValidation(t *testing.T) {
	path := writeTempYAML(t, `
buckets:
  - name: bucket
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_DuplicateBucketNameFailsValidation(t *testing.T) {
	path := writeTempYAML(t, `
nodes:
  - localhost:8091
buckets:
  - name: bucket
  - name: bucket
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_FileOutputRequiresFilename(t *testing.T) {
	path := writeTempYAML(t, `
nodes:
  - localhost:8091
buckets:
  - name: bucket
log:
  output: file
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_NoConfigFileFailsValidation(t *testing.T) {
	cfg, err := LoadConfig("")
	require.Error(t, err, "nodes/buckets are required and have no defaults")
	_ = cfg
}
