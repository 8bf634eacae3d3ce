package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaultOnFirstRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
listen: ":9090"
week_start: friday
view:
  day_start: "19:00"
  day_end: "07:00"
feeds:
  - id: lea
    name: Léa
    url: https://calendar.example.com/lea.ics
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "08:00", cfg.View.DayStart)
	assert.Equal(t, "20:00", cfg.View.DayEnd)
	assert.Equal(t, 60, cfg.View.HourHeightPx)
	assert.Equal(t, 14, cfg.HorizonDays)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "Léa", cfg.Feeds[0].Name)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Database.DSN = "postgres://crm@localhost/crm"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_Errors(t *testing.T) {
	t.Parallel()

	require.Error(t, Save("", DefaultConfig()))
	require.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
	_, err := Load("")
	require.Error(t, err)
}

func TestLocation(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "Europe/Paris", cfg.Location().String())

	cfg.Timezone = "Mars/Olympus"
	assert.Equal(t, time.Local, cfg.Location())

	assert.Equal(t, filepath.Join(cfg.CacheDir, "preview.png"), cfg.PreviewPath())
}
