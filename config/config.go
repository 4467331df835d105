// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	analysisconfig "github.com/RyanBlaney/cry-sonar/analysis/config"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/joho/godotenv"
)

// Config stores the application configuration
type Config struct {
	HTTPAddr   string
	Workers    int
	QueueSize  int
	JobTimeout time.Duration

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis progress channel
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ProgressTTL   time.Duration

	// Audio storage: "local" or "minio"
	StorageBackend string
	AudioDir       string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioRegion    string
	MinioBucket    string
	TempDir        string

	FFmpegPath  string
	FFprobePath string

	LogLevel string
	LogFile  string

	Analysis *analysisconfig.Config
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load reads .env (without overriding the environment), then the
// environment, falling back to defaults. The analysis section is not
// validated here; jobs validate it before they start.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logging.Debug("No .env file loaded, using environment and defaults")
	}

	analysis := analysisconfig.Default()
	analysis.Detector.EnergyThreshold = getEnvFloat("ENERGY_THRESHOLD", analysis.Detector.EnergyThreshold)
	analysis.Detector.MinDuration = getEnvFloat("MIN_CRY_DURATION", analysis.Detector.MinDuration)
	analysis.Acoustic.HighPitchThreshold = getEnvFloat("HIGH_PITCH_THRESHOLD", analysis.Acoustic.HighPitchThreshold)
	analysis.NoiseReductionLevel = getEnvInt("NOISE_REDUCTION_LEVEL", analysis.NoiseReductionLevel)

	return &Config{
		HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
		Workers:    getEnvInt("WORKERS", 2),
		QueueSize:  getEnvInt("QUEUE_SIZE", 32),
		JobTimeout: getEnvDuration("JOB_TIMEOUT", 13*time.Hour),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "cry_sonar"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		ProgressTTL:   getEnvDuration("PROGRESS_TTL", 24*time.Hour),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		AudioDir:       getEnv("AUDIO_DIR", "uploads/audio"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "recordings"),
		TempDir:        getEnv("TEMP_DIR", os.TempDir()),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),

		Analysis: analysis,
	}
}

// Logging returns the logger configuration
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.OutputPath = c.LogFile
	return cfg
}
