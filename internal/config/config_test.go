package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/schedule"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, "/tmp/xdg-data/planner", cfg.DataDir)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_NormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
data_dir: /srv/planner
timetable_file: /elsewhere/tt.json
horizon_days: -3
log_level: loud
export:
  cron: "not a cron"
  path: /srv/planner/calendar.ics
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, defaultHorizonDays, cfg.HorizonDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, defaultExportCron, cfg.Export.Cron)
	assert.Equal(t, "/srv/planner/calendar.ics", cfg.Export.Path)
	assert.Equal(t, "/elsewhere/tt.json", cfg.TimetablePath())
	assert.Equal(t, "/srv/planner/timetable_overrides.json", cfg.OverridesPath())
	assert.Equal(t, "/srv/planner/tasks.json", cfg.TasksPath())
	assert.Nil(t, cfg.BasicAuth)
}

func TestNormalize_HorizonAboveMaximum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HorizonDays = schedule.MaxHorizonDays + 1
	cfg.Normalize()
	assert.Equal(t, defaultHorizonDays, cfg.HorizonDays)

	cfg.HorizonDays = schedule.MaxHorizonDays
	cfg.Normalize()
	assert.Equal(t, schedule.MaxHorizonDays, cfg.HorizonDays)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RejectsEmptyInput(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}

func TestDefaultPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	assert.Equal(t, "/tmp/xdg-config/planner/config.yaml", DefaultPath())
}

func TestSave_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := DefaultConfig()
	require.NoError(t, Save(path, cfg))

	cfg.Listen = ":7000"
	require.NoError(t, Save(path, cfg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", loaded.Listen)
}
