package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10000, cfg.QuotaDailyLimit)
	assert.Equal(t, "America/Los_Angeles", cfg.QuotaTimezone)
	assert.True(t, cfg.QuotaEnforce)
	assert.Equal(t, 0.8, cfg.QuotaWarnRatio)
	assert.Equal(t, 24*time.Hour, cfg.TranscriptCacheTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QUOTA_DAILY_LIMIT", "500")
	t.Setenv("QUOTA_ENFORCE", "false")
	t.Setenv("STATS_REFRESH_INTERVAL", "5m")
	t.Setenv("YOUTUBE_RPS", "2.5")

	cfg := Load()
	assert.Equal(t, 500, cfg.QuotaDailyLimit)
	assert.False(t, cfg.QuotaEnforce)
	assert.Equal(t, 5*time.Minute, cfg.StatsRefreshInterval)
	assert.Equal(t, 2.5, cfg.YouTubeRPS)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QUOTA_DAILY_LIMIT", "lots")
	t.Setenv("QUOTA_ENFORCE", "maybe")
	t.Setenv("STATS_MAX_AGE", "-1h")

	cfg := Load()
	assert.Equal(t, 10000, cfg.QuotaDailyLimit)
	assert.True(t, cfg.QuotaEnforce)
	assert.Equal(t, 12*time.Hour, cfg.StatsMaxAge)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9999\nQUOTA_TIMEZONE=Asia/Seoul\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("PORT", "7000")
	t.Cleanup(func() { os.Unsetenv("QUOTA_TIMEZONE") })

	cfg := Load()
	assert.Equal(t, "7000", cfg.Port, "environment wins over .env")
	assert.Equal(t, "Asia/Seoul", cfg.QuotaTimezone)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{QuotaTimezone: "UTC", QuotaDailyLimit: 100, QuotaWarnRatio: 0.5}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.QuotaTimezone = "Mars/Olympus_Mons"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.QuotaWarnRatio = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Environment = "production"
	assert.Error(t, cfg.Validate(), "production requires firebase")
}

func TestParseCuratedPackages(t *testing.T) {
	data := []byte(`
packages:
  - id: cooking
    title: 요리 채널 모음
    category: food
    channels:
      - channel_id: UC_x5XG1OV2P6uZZ5FSM9Ttw
        title: Chef
  - id: tech-topic
    kind: topic
    title: Tech
    channels:
      - channel_id: UCBR8-60-B28hp2BmDPdntcQ
`)
	pkgs, err := ParseCuratedPackages(data)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, model.KindPackage, pkgs[0].Kind)
	assert.Equal(t, "Chef", pkgs[0].Channels[0].Title)
	assert.Equal(t, model.KindTopic, pkgs[1].Kind)
}

func TestParseCuratedPackages_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing id":    "packages:\n  - title: x\n    channels: [{channel_id: a}]\n",
		"no channels":   "packages:\n  - id: a\n    title: x\n",
		"bad kind":      "packages:\n  - id: a\n    kind: list\n    title: x\n    channels: [{channel_id: a}]\n",
		"duplicate ids": "packages:\n  - id: a\n    title: x\n    channels: [{channel_id: a}]\n  - id: a\n    title: y\n    channels: [{channel_id: b}]\n",
		"not yaml":      "packages: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCuratedPackages([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadCuratedPackages_EmptyPath(t *testing.T) {
	pkgs, err := LoadCuratedPackages("")
	require.NoError(t, err)
	assert.Nil(t, pkgs)
}
