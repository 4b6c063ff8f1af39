package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration for the document-manipulation worker.
type Config struct {
	Server      ServerConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	ObjectStore ObjectStoreConfig
	Progress    ProgressConfig
	RateLimit   RateLimitConfig
	Pipeline    PipelineConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ObjectStoreConfig configures the MinIO-compatible object store adapter.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

// ProgressConfig controls the best-effort progress callback.
type ProgressConfig struct {
	CallbackURL string
	Enabled     bool
	Timeout     time.Duration
}

// RateLimitConfig controls the rate limiter guarding the invoke route.
// - RPS: allowed requests per second
// - Burst: maximum burst tokens
// - Enabled: whether middleware is enabled
type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int // window size in seconds for Redis fixed-window counter
}

// PipelineConfig holds the wall-clock budget and recovery-window knobs.
type PipelineConfig struct {
	// Deadline is the default wall-clock budget for one invocation.
	Deadline time.Duration
	// DeadlineSafetyMargin is the minimum remaining budget required before a
	// stage boundary or the orchestrator's own object-store writes; under this
	// the pipeline aborts. The split stage's per-range writes are covered only
	// by the check made before the stage starts.
	DeadlineSafetyMargin time.Duration
	// RecoveryWindow is how old an InWorkman document's last update must be
	// before a new invocation is allowed to take over it. Zero means fail
	// fast (the default: none).
	RecoveryWindow time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load("docworker/.env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5010")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_TIMEOUT", 10)

	viper.SetDefault("MINIO_USE_SSL", false)
	viper.SetDefault("MINIO_BUCKET", "docworker")
	viper.SetDefault("AWS_DEFAULT_REGION", "us-east-1")

	viper.SetDefault("PROGRESS_CALLBACKS_ENABLED", true)
	viper.SetDefault("PROGRESS_CALLBACK_TIMEOUT_SECONDS", 5)

	// Rate limiting defaults
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 40)
	// Redis-backed rate limiter defaults
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	viper.SetDefault("PIPELINE_DEADLINE_SECONDS", 14*60)
	viper.SetDefault("PIPELINE_DEADLINE_SAFETY_MARGIN_SECONDS", 60)
	viper.SetDefault("PIPELINE_RECOVERY_WINDOW_SECONDS", 0)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      getEnvOrPanic("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
			Region:    viper.GetString("AWS_DEFAULT_REGION"),
		},
		Progress: ProgressConfig{
			CallbackURL: viper.GetString("PROGRESS_CALLBACK_URL"),
			Enabled:     viper.GetBool("PROGRESS_CALLBACKS_ENABLED"),
			Timeout:     time.Duration(viper.GetInt("PROGRESS_CALLBACK_TIMEOUT_SECONDS")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Pipeline: PipelineConfig{
			Deadline:             time.Duration(viper.GetInt("PIPELINE_DEADLINE_SECONDS")) * time.Second,
			DeadlineSafetyMargin: time.Duration(viper.GetInt("PIPELINE_DEADLINE_SAFETY_MARGIN_SECONDS")) * time.Second,
			RecoveryWindow:       time.Duration(viper.GetInt("PIPELINE_RECOVERY_WINDOW_SECONDS")) * time.Second,
		},
	}

	if cfg.ObjectStore.Bucket == "" {
		log.Println("WARNING: MINIO_BUCKET is empty; object store operations will fail")
	}

	return cfg, nil
}

func getEnvOrPanic(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("environment variable %s is required", key)
	}
	return v
}
