package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT (tokens are issued by the external auth provider; we only verify)
	JWTSecret string

	// Model gateway
	GatewayAPIKey  string
	GatewayBaseURL string
	ChatModel      string
	ImageModel     string

	// Workers
	TitleWorkers int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),
		// A missing gateway key is a deployment defect; fail fast at startup
		// rather than per request.
		GatewayAPIKey:  mustGetEnv("GATEWAY_API_KEY"),
		GatewayBaseURL: getEnvOrDefault("GATEWAY_BASE_URL", "https://openrouter.ai/api/v1"),
		ChatModel:      getEnvOrDefault("CHAT_MODEL", "openai/gpt-4o-mini"),
		ImageModel:     getEnvOrDefault("IMAGE_MODEL", "google/gemini-2.5-flash-image-preview"),
		TitleWorkers:   getEnvAsIntOrDefault("TITLE_WORKERS", 2),
		FrontendURL:    getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
