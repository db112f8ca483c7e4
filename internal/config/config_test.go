package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/isvind/gpufanctl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gpufanctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const validConfig = `
response_time = 1.5
hysteresis = 3
fan_curve = [[20, 20], [50, 50], [80, 100]]
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 1.5, cfg.ResponseTime, 1e-9)
	assert.Equal(t, 1500*time.Millisecond, cfg.Interval())
	assert.Equal(t, 3, cfg.Hysteresis)
	require.Len(t, cfg.Anchors(), 3)
	assert.EqualValues(t, 20, cfg.Anchors()[0].Temperature)
	assert.EqualValues(t, 100, cfg.Anchors()[2].Duty)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadRejectsFastResponseTime(t *testing.T) {
	path := writeConfig(t, `
response_time = 0.1
hysteresis = 3
fan_curve = [[20, 20], [50, 50], [80, 100]]
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0.25 seconds")
}

func TestLoadRejectsHysteresisOutOfRange(t *testing.T) {
	for _, hysteresis := range []string{"0", "6"} {
		path := writeConfig(t, `
response_time = 1.0
hysteresis = `+hysteresis+`
fan_curve = [[20, 20], [50, 50], [80, 100]]
`)
		_, err := config.Load(path)
		require.Error(t, err, "hysteresis %s", hysteresis)
		assert.Contains(t, err.Error(), "between 1C and 5C")
	}
}

func TestLoadRejectsShortCurve(t *testing.T) {
	path := writeConfig(t, `
response_time = 1.0
hysteresis = 3
fan_curve = [[20, 20], [80, 100]]
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 points")
}

func TestLoadRejectsDutyAboveHundred(t *testing.T) {
	path := writeConfig(t, `
response_time = 1.0
hysteresis = 3
fan_curve = [[20, 20], [50, 50], [80, 101]]
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "100%")
}

func TestLoadRejectsTelemetryWithoutDatabase(t *testing.T) {
	path := writeConfig(t, validConfig+`
telemetry = true
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}
