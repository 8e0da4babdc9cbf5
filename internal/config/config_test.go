package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tgrelay/internal/utils"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "downloads", cfg.Paths.DownloadDir)
	assert.Equal(t, "Assets", cfg.Paths.ThumbDir)
	assert.Equal(t, "cookies.txt", cfg.Paths.CookiesFile)
	assert.Equal(t, "logs.txt", cfg.Paths.LogFile)
	assert.Equal(t, int64(utils.DefaultSizeCeiling), cfg.Limits.SizeCeiling)
	assert.Equal(t, 1900, cfg.Limits.VolumeSizeMB)
	assert.Equal(t, 3*time.Second, cfg.Limits.BatchDelay)
	assert.Equal(t, "@hourly", cfg.Janitor.Cron)
	assert.Equal(t, "7z", cfg.Tools.Binaries()["7z"])
	assert.Error(t, cfg.Validate())
}

func TestLoadLayers(t *testing.T) {
	dir := chdirTemp(t)
	t.Cleanup(func() { _ = os.Unsetenv("BOT_TOKEN") })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BOT_TOKEN=from-dotenv\n"), 0644))
	yamlPath := filepath.Join(dir, "tgrelay.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
telegram:
  api_id: 12345
  api_hash: abc
  session_string: sess
paths:
  download_dir: /tmp/dl
limits:
  url_workers: 3
  batch_delay: 5s
`), 0644))
	t.Setenv("DOWNLOAD_DIR", "/data/dl")
	t.Setenv("SCRATCH_MAX_AGE", "90m")
	t.Setenv("VOLUME_SIZE_MB", "not-a-number")

	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, int32(12345), cfg.Telegram.APIID)
	assert.Equal(t, "from-dotenv", cfg.Telegram.BotToken)
	assert.Equal(t, "/data/dl", cfg.Paths.DownloadDir)
	assert.Equal(t, 3, cfg.Limits.URLWorkers)
	assert.Equal(t, 5*time.Second, cfg.Limits.BatchDelay)
	assert.Equal(t, 90*time.Minute, cfg.Janitor.MaxAge)
	assert.Equal(t, 1900, cfg.Limits.VolumeSizeMB)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SIZE_CEILING", "-1")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	chdirTemp(t)
	_, err := Load("/nonexistent/tgrelay.yaml")
	assert.Error(t, err)
}
