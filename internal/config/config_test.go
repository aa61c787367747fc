package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "activities-", cfg.Storage.KeyPrefix)
	assert.Equal(t, RangeRematerialize, cfg.Ranges.OnUpdate)
	assert.True(t, cfg.Seed.Enabled)
	assert.Equal(t, 366, cfg.Calendar.MaxRangeDays)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
ranges:
  on_update: in_place
calendar:
  timezone: UTC
  week_start: monday
`))
	require.NoError(t, err)
	assert.Equal(t, RangeInPlace, cfg.Ranges.OnUpdate)
	assert.Equal(t, "activities-", cfg.Storage.KeyPrefix)
	ws, err := cfg.WeekStartDay()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, ws)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"prefix":   "storage:\n  key_prefix: \"\"\n",
		"timezone": "calendar:\n  timezone: Mars/Olympus\n",
		"week":     "calendar:\n  week_start: friday\n",
		"range":    "calendar:\n  max_range_days: 0\n",
		"policy":   "ranges:\n  on_update: sometimes\n",
		"level":    "log:\n  level: loud\n",
		"webhook":  "webhooks:\n  - url: \"\"\n",
		"yaml":     "storage: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "planner.yml"), []byte("seed:\n  enabled: false\n"), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.False(t, cfg.Seed.Enabled)
}
