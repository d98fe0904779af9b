package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guardian.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsInternallyConsistent(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.validate())
	assert.Equal(t, 10, cfg.Rates.GlobalMaxPerSecond)
	assert.Equal(t, time.Hour, cfg.BanDuration())
	assert.Equal(t, time.Hour, cfg.RetentionWindow())
	assert.Equal(t, float64(2), cfg.Rates.PerKind["plant"])
	assert.Equal(t, float64(50), cfg.Distances["harvest"])
}

func TestLoadFillsMissingValuesWithDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
enforcement:
  warning_at: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Enforcement.WarningAt)
	// Untouched sections come from the defaults.
	assert.Equal(t, 10, cfg.Enforcement.KickAt)
	assert.Equal(t, 10, cfg.Rates.GlobalMaxPerSecond)
	assert.Equal(t, "guardian:audit", cfg.Audit.RedisChannel)
}

func TestLoadRejectsNonIncreasingThresholds(t *testing.T) {
	path := writeConfig(t, `
enforcement:
  warning_at: 10
  kick_at: 10
  ban_at: 25
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveRate(t *testing.T) {
	path := writeConfig(t, `
rates:
  global_max_per_second: 10
  per_kind:
    plant: -2
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveDistance(t *testing.T) {
	path := writeConfig(t, `
distances:
  harvest: 0
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a: mapping")
	_, err := Load(path)
	assert.Error(t, err)
}
