package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	// Local snapshot storage.
	StorageDriver string // memory|file|sqlite|redis
	DataDir       string
	SnapshotKey   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Remote persistence mirror.
	RemoteSync bool
	DBType     string // sqlite|postgres|mysql
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "cutflow"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		StorageDriver: strings.ToLower(getenv("CUTFLOW_STORAGE_DRIVER", "file")),
		DataDir:       getenv("CUTFLOW_DATA_DIR", "./data"),
		SnapshotKey:   getenv("CUTFLOW_SNAPSHOT_KEY", "cutflow:snapshot"),

		RedisAddr:     getenv("CUTFLOW_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("CUTFLOW_REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("CUTFLOW_REDIS_DB", 0),

		RemoteSync: getenvBool("CUTFLOW_REMOTE_SYNC", false),
		DBType:     getenv("DATABASE_TYPE", "sqlite"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "cutflow"),
		DBUser:     getenv("DATABASE_USER", "cutflow"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Module wires application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewTuningHolder),
)
