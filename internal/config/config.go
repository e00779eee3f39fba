package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultUploadMaxSize = 20 << 20
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gemini    GeminiConfig
	Upload    UploadConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GeminiConfig holds the credential, models and retry knobs for the
// generation API. An empty APIKey is allowed at load time; calls fail with a
// missing-credential error instead.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	TranscribeModel string
	BlogModel       string
	RequestTimeout  time.Duration
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	MaxElapsed      time.Duration
}

type UploadConfig struct {
	MaxBytes int64
}

type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type WorkerConfig struct {
	Concurrency int
}

// Load reads configuration from an optional .env file, an optional config file
// named by CONFIG_FILE, and the process environment. Environment wins.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 10*time.Minute)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_BASE_URL", DefaultGeminiBaseURL)
	v.SetDefault("GEMINI_TRANSCRIBE_MODEL", DefaultGeminiModel)
	v.SetDefault("GEMINI_BLOG_MODEL", DefaultGeminiModel)
	v.SetDefault("GEMINI_REQUEST_TIMEOUT", 60*time.Second)
	v.SetDefault("GEMINI_MAX_RETRIES", 6)
	v.SetDefault("GEMINI_BASE_DELAY", time.Second)
	v.SetDefault("GEMINI_MAX_DELAY", 30*time.Second)
	v.SetDefault("GEMINI_MAX_ELAPSED", time.Duration(0))

	v.SetDefault("UPLOAD_MAX_BYTES", DefaultUploadMaxSize)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	v.SetDefault("WORKER_CONCURRENCY", 4)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			WriteTimeout:   v.GetDuration("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			MaxConns: v.GetInt("DB_MAX_CONNS"),
			MinConns: v.GetInt("DB_MIN_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Gemini: GeminiConfig{
			APIKey:          v.GetString("GEMINI_API_KEY"),
			BaseURL:         strings.TrimRight(v.GetString("GEMINI_BASE_URL"), "/"),
			TranscribeModel: orDefault(v.GetString("GEMINI_TRANSCRIBE_MODEL"), DefaultGeminiModel),
			BlogModel:       orDefault(v.GetString("GEMINI_BLOG_MODEL"), DefaultGeminiModel),
			RequestTimeout:  v.GetDuration("GEMINI_REQUEST_TIMEOUT"),
			MaxRetries:      v.GetInt("GEMINI_MAX_RETRIES"),
			BaseDelay:       v.GetDuration("GEMINI_BASE_DELAY"),
			MaxDelay:        v.GetDuration("GEMINI_MAX_DELAY"),
			MaxElapsed:      v.GetDuration("GEMINI_MAX_ELAPSED"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("WORKER_CONCURRENCY"),
		},
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports missing required settings and out-of-range values.
func (c *Config) Validate() error {
	var problems []string
	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if c.Gemini.MaxRetries < 1 {
		problems = append(problems, fmt.Sprintf("GEMINI_MAX_RETRIES must be >= 1, got %d", c.Gemini.MaxRetries))
	}
	if c.Gemini.RequestTimeout <= 0 {
		problems = append(problems, "GEMINI_REQUEST_TIMEOUT must be positive")
	}
	if c.Upload.MaxBytes <= 0 {
		problems = append(problems, "UPLOAD_MAX_BYTES must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
