package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// All asset directories live under PublicDir so everything the renderer
// produces or consumes stays web-servable.
type Config struct {
	ListenAddr string

	FFmpegPath string // Path to the ffmpeg binary driving the render engine

	PublicDir string // Root directory for web-servable assets
	UploadDir string // PublicDir/uploads — session-scoped uploaded files
	BgmDir    string // PublicDir/bgm — bundled preset audio tracks
	OutputDir string // PublicDir/out — rendered MP4 files

	RenderTimeout time.Duration // Upper bound for composition selection and for encoding

	// Optional export-history cache; empty host disables it.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Optional mirror of rendered outputs; empty endpoint disables it.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LogPath  string
	LogLevel string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	publicDir := getEnv("PUBLIC_DIR", "public")

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),

		PublicDir: publicDir,
		UploadDir: filepath.Join(publicDir, "uploads"),
		BgmDir:    filepath.Join(publicDir, "bgm"),
		OutputDir: filepath.Join(publicDir, "out"),

		RenderTimeout: time.Duration(getEnvInt("RENDER_TIMEOUT_SECONDS", 120)) * time.Second,

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "slidecast"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LogPath:  getEnv("LOG_PATH", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}
