package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/utils"
	"gopkg.in/yaml.v3"
)

// Config is read in three layers: .env, an optional YAML file, then the
// process environment. Later layers win.
//
// Environment variables:
//   - API_ID, API_HASH: application credentials (required for run)
//   - BOT_TOKEN: bot identity token (required for run)
//   - SESSION_STRING: user identity string session (required for run)
//   - DOWNLOAD_DIR (downloads), THUMB_DIR (Assets), COOKIES_FILE (cookies.txt), LOG_FILE (logs.txt)
//   - SIZE_CEILING (bytes, 2 GiB), VOLUME_SIZE_MB (1900)
//   - BATCH_DELAY (3s), URL_WORKERS (1)
//   - JANITOR_CRON (@hourly), SCRATCH_MAX_AGE (6h)
//   - S3_PROFILE (default)
//   - ARIA2C_BIN, YTDLP_BIN, FFMPEG_BIN, FFPROBE_BIN, SEVENZIP_BIN
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Paths    PathsConfig    `yaml:"paths"`
	Limits   LimitsConfig   `yaml:"limits"`
	Janitor  JanitorConfig  `yaml:"janitor"`
	Tools    ToolsConfig    `yaml:"tools"`
	S3       S3Config       `yaml:"s3"`
}

type TelegramConfig struct {
	APIID         int32  `yaml:"api_id"`
	APIHash       string `yaml:"api_hash"`
	BotToken      string `yaml:"bot_token"`
	SessionString string `yaml:"session_string"`
}

type PathsConfig struct {
	DownloadDir string `yaml:"download_dir"`
	ThumbDir    string `yaml:"thumb_dir"`
	CookiesFile string `yaml:"cookies_file"`
	LogFile     string `yaml:"log_file"`
	ToolDir     string `yaml:"tool_dir"`
}

type LimitsConfig struct {
	SizeCeiling  int64         `yaml:"size_ceiling"`
	VolumeSizeMB int           `yaml:"volume_size_mb"`
	BatchDelay   time.Duration `yaml:"batch_delay"`
	URLWorkers   int           `yaml:"url_workers"`
}

type JanitorConfig struct {
	Cron   string        `yaml:"cron"`
	MaxAge time.Duration `yaml:"max_age"`
}

// ToolsConfig names the executables behind each logical tool.
type ToolsConfig struct {
	Aria2c   string `yaml:"aria2c"`
	Ytdlp    string `yaml:"yt-dlp"`
	FFmpeg   string `yaml:"ffmpeg"`
	FFprobe  string `yaml:"ffprobe"`
	SevenZip string `yaml:"7z"`
}

func (t ToolsConfig) Binaries() map[string]string {
	return map[string]string{
		"aria2c":  t.Aria2c,
		"yt-dlp":  t.Ytdlp,
		"ffmpeg":  t.FFmpeg,
		"ffprobe": t.FFprobe,
		"7z":      t.SevenZip,
	}
}

type S3Config struct {
	Profile string `yaml:"profile"`
}

func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DownloadDir: "downloads",
			ThumbDir:    "Assets",
			CookiesFile: "cookies.txt",
			LogFile:     "logs.txt",
			ToolDir:     "bin",
		},
		Limits: LimitsConfig{
			SizeCeiling:  utils.DefaultSizeCeiling,
			VolumeSizeMB: utils.DefaultVolumeSizeMB,
			BatchDelay:   utils.BatchDelay,
			URLWorkers:   1,
		},
		Janitor: JanitorConfig{
			Cron:   "@hourly",
			MaxAge: 6 * time.Hour,
		},
		Tools: ToolsConfig{
			Aria2c:   "aria2c",
			Ytdlp:    "yt-dlp",
			FFmpeg:   "ffmpeg",
			FFprobe:  "ffprobe",
			SevenZip: "7z",
		},
		S3: S3Config{Profile: "default"},
	}
}

// Load builds the configuration. An empty path skips the YAML layer; a
// missing .env is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("op", "config/config").Msgf("error reading .env: %v", err)
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %v", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Telegram.APIID = int32(getEnvInt("API_ID", int(c.Telegram.APIID)))
	c.Telegram.APIHash = getEnvString("API_HASH", c.Telegram.APIHash)
	c.Telegram.BotToken = getEnvString("BOT_TOKEN", c.Telegram.BotToken)
	c.Telegram.SessionString = getEnvString("SESSION_STRING", c.Telegram.SessionString)

	c.Paths.DownloadDir = getEnvString("DOWNLOAD_DIR", c.Paths.DownloadDir)
	c.Paths.ThumbDir = getEnvString("THUMB_DIR", c.Paths.ThumbDir)
	c.Paths.CookiesFile = getEnvString("COOKIES_FILE", c.Paths.CookiesFile)
	c.Paths.LogFile = getEnvString("LOG_FILE", c.Paths.LogFile)
	c.Paths.ToolDir = getEnvString("TOOL_DIR", c.Paths.ToolDir)

	c.Limits.SizeCeiling = getEnvInt64("SIZE_CEILING", c.Limits.SizeCeiling)
	c.Limits.VolumeSizeMB = getEnvInt("VOLUME_SIZE_MB", c.Limits.VolumeSizeMB)
	c.Limits.BatchDelay = getEnvDuration("BATCH_DELAY", c.Limits.BatchDelay)
	c.Limits.URLWorkers = getEnvInt("URL_WORKERS", c.Limits.URLWorkers)

	c.Janitor.Cron = getEnvString("JANITOR_CRON", c.Janitor.Cron)
	c.Janitor.MaxAge = getEnvDuration("SCRATCH_MAX_AGE", c.Janitor.MaxAge)

	c.Tools.Aria2c = getEnvString("ARIA2C_BIN", c.Tools.Aria2c)
	c.Tools.Ytdlp = getEnvString("YTDLP_BIN", c.Tools.Ytdlp)
	c.Tools.FFmpeg = getEnvString("FFMPEG_BIN", c.Tools.FFmpeg)
	c.Tools.FFprobe = getEnvString("FFPROBE_BIN", c.Tools.FFprobe)
	c.Tools.SevenZip = getEnvString("SEVENZIP_BIN", c.Tools.SevenZip)

	c.S3.Profile = getEnvString("S3_PROFILE", c.S3.Profile)
}

// check rejects values no command can work with.
func (c *Config) check() error {
	if c.Limits.SizeCeiling <= 0 {
		return fmt.Errorf("SIZE_CEILING must be positive")
	}
	if c.Limits.VolumeSizeMB <= 0 {
		return fmt.Errorf("VOLUME_SIZE_MB must be positive")
	}
	if c.Limits.URLWorkers < 1 {
		c.Limits.URLWorkers = 1
	}
	if c.Limits.BatchDelay < 0 {
		c.Limits.BatchDelay = 0
	}
	return nil
}

// Validate checks the credentials the run command needs.
func (c *Config) Validate() error {
	if c.Telegram.APIID == 0 {
		return fmt.Errorf("API_ID is required")
	}
	if c.Telegram.APIHash == "" {
		return fmt.Errorf("API_HASH is required")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.Telegram.SessionString == "" {
		return fmt.Errorf("SESSION_STRING is required")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("op", "config/config").Msgf("ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
		log.Warn().Str("op", "config/config").Msgf("ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("op", "config/config").Msgf("ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}
