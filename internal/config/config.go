package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config carries every runtime knob. Values come from the environment,
// optionally seeded from a config.env file, with working defaults for
// local runs.
type Config struct {
	BotToken string
	OwnerID  int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string

	ListenAddr string

	StagingDir      string
	ChunkSize       int64
	MaxFileSize     int64
	ConnectionBoost int

	FallbackAPIURL string
	ProxyURL       string

	YtdlpPath   string
	FFmpegPath  string
	FFprobePath string
	CookiesFile string

	Retention      time.Duration
	ProgressEvery  time.Duration
	ChatEditEvery  time.Duration
	ProcessTimeout time.Duration

	LogLevel string
}

// FromEnv builds a Config from the process environment.
func FromEnv() Config {
	staging := getenv("STAGING_DIR", "")
	if staging == "" {
		staging = filepath.Join(os.TempDir(), "telelink_staging")
	}

	return Config{
		BotToken:        os.Getenv("BOT_TOKEN"),
		OwnerID:         int64(getenvInt("OWNER_ID", 0)),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getenvInt("REDIS_DB", 0),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		ListenAddr:      getenv("LISTEN_ADDR", ":8080"),
		StagingDir:      staging,
		ChunkSize:       int64(getenvInt("CHUNK_SIZE_KB", 4096)) * 1024,
		MaxFileSize:     int64(getenvInt("MAX_FILE_SIZE_MB", 2000)) * 1024 * 1024,
		ConnectionBoost: getenvInt("CONNECTION_BOOST", 4),
		FallbackAPIURL:  os.Getenv("FALLBACK_API_URL"),
		ProxyURL:        os.Getenv("PROXY"),
		YtdlpPath:       getenv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:      getenv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:     getenv("FFPROBE_PATH", "ffprobe"),
		CookiesFile:     getenv("COOKIES_FILE", "cookies.txt"),
		Retention:       getenvDuration("PROGRESS_RETENTION", 30*time.Second),
		ProgressEvery:   getenvDuration("PROGRESS_INTERVAL", 500*time.Millisecond),
		ChatEditEvery:   getenvDuration("CHAT_EDIT_INTERVAL", 1500*time.Millisecond),
		ProcessTimeout:  getenvDuration("PROCESS_MAX_TIMEOUT", 0),
		LogLevel:        getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// LoadEnvFile reads KEY=VALUE lines into the environment without
// overriding variables that are already set. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" {
			continue
		}
		if len(v) >= 2 {
			if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
				v = v[1 : len(v)-1]
			}
		}
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		_ = os.Setenv(k, v)
	}
	return sc.Err()
}
