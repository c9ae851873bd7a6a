package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config stores the application configuration.
type Config struct {
	Port       string `yaml:"port"`
	FFmpegPath string `yaml:"ffmpeg_path"`

	UploadDir     string `yaml:"upload_dir"`     // 上传的原始媒体文件
	AudioDir      string `yaml:"audio_dir"`      // 提取出的音频及临时 WAV
	TranscriptDir string `yaml:"transcript_dir"` // 转录文本与 {hash}.txt 缓存
	RecentFile    string `yaml:"recent_file"`
	WebAppDir     string `yaml:"web_app_dir"` // 前端静态目录，为空时不挂载
	MaxUploadMB   int    `yaml:"max_upload_mb"`
	WatchUploads  bool   `yaml:"watch_uploads"`

	TargetSampleRate int `yaml:"target_sample_rate"`
	SegmentSeconds   int `yaml:"segment_seconds"`

	// 识别后端: command | http | stub
	RecognizerBackend     string `yaml:"recognizer_backend"`
	RecognizerCommand     string `yaml:"recognizer_command"`
	RecognizerURL         string `yaml:"recognizer_url"`
	RecognizerModel       string `yaml:"recognizer_model"`
	RecognizerPunctuation bool   `yaml:"recognizer_punctuation"`

	// Redis配置，RedisHost 为空时不启用
	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// MinIO配置，MinioEndpoint 为空时不启用
	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioRegion    string `yaml:"minio_region"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`

	// MySQL配置，DBHost 为空时不记录转录历史
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Port:                  "5001",
		FFmpegPath:            "ffmpeg",
		UploadDir:             "uploads",
		AudioDir:              "audio_output",
		TranscriptDir:         "txt_output",
		RecentFile:            "recent_files.json",
		WebAppDir:             "",
		MaxUploadMB:           500,
		TargetSampleRate:      16000,
		SegmentSeconds:        60,
		RecognizerBackend:     "command",
		RecognizerCommand:     "funasr-recognize",
		RecognizerModel:       "paraformer-zh",
		RecognizerPunctuation: true,
		RedisPort:             "6379",
		MinioBucket:           "audioscribe",
		MinioRegion:           "us-east-1",
		DBPort:                "3306",
		DBUser:                "root",
		DBName:                "audioscribe",
		LogLevel:              "info",
	}
}

// RedisEnabled reports whether a Redis tier is configured.
func (c *Config) RedisEnabled() bool { return c.RedisHost != "" }

// MinioEnabled reports whether MinIO archiving is configured.
func (c *Config) MinioEnabled() bool { return c.MinioEndpoint != "" }

// DBEnabled reports whether transcription history is persisted.
func (c *Config) DBEnabled() bool { return c.DBHost != "" }

// Validate 检查关键配置项
func (c *Config) Validate() error {
	if c.TargetSampleRate <= 0 {
		return fmt.Errorf("config: target sample rate must be > 0, got %d", c.TargetSampleRate)
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("config: segment seconds must be > 0, got %d", c.SegmentSeconds)
	}
	switch c.RecognizerBackend {
	case "command", "http", "stub":
	default:
		return fmt.Errorf("config: unknown recognizer backend %q", c.RecognizerBackend)
	}
	if c.RecognizerBackend == "http" && c.RecognizerURL == "" {
		return fmt.Errorf("config: RECOGNIZER_URL is required for the http backend")
	}
	return nil
}

// LoadFile applies an optional YAML file on top of the defaults, then environment
// variables (including .env) on top of that.
func LoadFile(path string) (*Config, error) {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(os.LookupEnv, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(lookup func(string) (string, bool), cfg *Config) {
	env := envReader{lookup: lookup}

	env.str("PORT", &cfg.Port)
	env.str("FFMPEG_PATH", &cfg.FFmpegPath)
	env.str("UPLOAD_DIR", &cfg.UploadDir)
	env.str("AUDIO_DIR", &cfg.AudioDir)
	env.str("TRANSCRIPT_DIR", &cfg.TranscriptDir)
	env.str("RECENT_FILE", &cfg.RecentFile)
	env.str("WEB_APP_DIR", &cfg.WebAppDir)
	env.int("MAX_UPLOAD_MB", &cfg.MaxUploadMB)
	env.bool("WATCH_UPLOADS", &cfg.WatchUploads)

	env.int("TARGET_SAMPLE_RATE", &cfg.TargetSampleRate)
	env.int("SEGMENT_SECONDS", &cfg.SegmentSeconds)

	env.str("RECOGNIZER_BACKEND", &cfg.RecognizerBackend)
	env.str("RECOGNIZER_COMMAND", &cfg.RecognizerCommand)
	env.str("RECOGNIZER_URL", &cfg.RecognizerURL)
	env.str("RECOGNIZER_MODEL", &cfg.RecognizerModel)
	env.bool("RECOGNIZER_PUNCTUATION", &cfg.RecognizerPunctuation)

	env.str("REDIS_HOST", &cfg.RedisHost)
	env.str("REDIS_PORT", &cfg.RedisPort)
	env.str("REDIS_PASSWORD", &cfg.RedisPassword)
	env.int("REDIS_DB", &cfg.RedisDB)

	env.str("MINIO_ENDPOINT", &cfg.MinioEndpoint)
	env.str("MINIO_ACCESS_KEY", &cfg.MinioAccessKey)
	env.str("MINIO_SECRET_KEY", &cfg.MinioSecretKey)
	env.str("MINIO_BUCKET", &cfg.MinioBucket)
	env.str("MINIO_REGION", &cfg.MinioRegion)
	env.bool("MINIO_USE_SSL", &cfg.MinioUseSSL)

	env.str("DB_HOST", &cfg.DBHost)
	env.str("DB_PORT", &cfg.DBPort)
	env.str("DB_USER", &cfg.DBUser)
	env.str("DB_PASSWORD", &cfg.DBPassword)
	env.str("DB_NAME", &cfg.DBName)

	env.str("LOG_LEVEL", &cfg.LogLevel)
	env.str("LOG_FILE", &cfg.LogFile)
}

type envReader struct {
	lookup func(string) (string, bool)
}

// str 环境变量存在且非空时覆盖
func (e envReader) str(key string, target *string) {
	if value, ok := e.lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func (e envReader) int(key string, target *int) {
	if value, ok := e.lookup(key); ok {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*target = intVal
		}
	}
}

func (e envReader) bool(key string, target *bool) {
	if value, ok := e.lookup(key); ok {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			*target = boolVal
		}
	}
}
