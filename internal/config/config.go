package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Console ConsoleConfig
	Infra   InfraConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

// BackendConfig points at the document/query API the console fronts.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ConsoleConfig struct {
	ReloadDelay time.Duration // delay between a successful delete and the list reload
	TTL         time.Duration // idle lifetime of a browser console
	CookieName  string
}

type InfraConfig struct {
	RedisURL     string
	NatsURL      string
	OtelEnabled  bool
	OtelEndpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/console.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("KB_API_BASE_URL", "http://localhost:8000"),
			Timeout: time.Duration(getEnvAsInt("KB_API_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Console: ConsoleConfig{
			ReloadDelay: time.Duration(getEnvAsInt("RELOAD_DELAY_MS", 1000)) * time.Millisecond,
			TTL:         time.Duration(getEnvAsInt("CONSOLE_TTL_MINUTES", 60)) * time.Minute,
			CookieName:  getEnv("CONSOLE_COOKIE_NAME", "kb_console"),
		},
		Infra: InfraConfig{
			RedisURL:     getEnv("REDIS_URL", ""),
			NatsURL:      getEnv("NATS_URL", ""),
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
