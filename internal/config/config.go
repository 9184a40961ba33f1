package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	APIBase  string
	AppEnv   string
	LogLevel string
	LogFile  string

	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string
	ProviderTimeout      time.Duration
	RetrievalEnabled     bool

	ETLBearer string

	StoreDriver  string
	DatabaseURL  string
	SeedDemoData bool
	CORSOrigin   string

	IngestFetchArticles bool

	MinIO      MinIOConfig
	ClickHouse ClickHouseConfig
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

type ClickHouseConfig struct {
	Addr     string
	Database string
	User     string
	Password string
}

func (c ClickHouseConfig) Enabled() bool { return c.Addr != "" }

var AppConfig Config

var storeDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true}

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	AppConfig = cfg
}

// FromEnv reads the configuration from the process environment without
// touching AppConfig.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:     getEnv("PORT", "3001"),
		APIBase:  normalizeBase(getEnv("API_BASE", "/api")),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:  getEnv("LOG_FILE", ""),

		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		ProviderTimeout:      getEnvAsDuration("PROVIDER_TIMEOUT", 30*time.Second),
		RetrievalEnabled:     getEnvAsBool("RETRIEVAL_ENABLED", false),

		ETLBearer: getEnv("ETL_BEARER", ""),

		StoreDriver:  strings.ToLower(getEnv("STORE_DRIVER", "memory")),
		DatabaseURL:  getEnv("DATABASE_URL", "ai_health.db"),
		SeedDemoData: getEnvAsBool("SEED_DEMO_DATA", true),
		CORSOrigin:   getEnv("CORS_ORIGIN", "*"),

		IngestFetchArticles: getEnvAsBool("INGEST_FETCH_ARTICLES", false),

		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "health-content"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("CLICKHOUSE_ADDR", ""),
			Database: getEnv("CLICKHOUSE_DB", "ai_health"),
			User:     getEnv("CLICKHOUSE_USER", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
	}

	if !storeDrivers[cfg.StoreDriver] {
		return cfg, fmt.Errorf("unsupported STORE_DRIVER %q (memory, sqlite, postgres)", cfg.StoreDriver)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return cfg, fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}
	return cfg, nil
}

// MockMode reports whether answers come from the local knowledge base only.
func (c Config) MockMode() bool {
	return c.GeminiAPIKey == ""
}

func normalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimRight(base, "/")
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	// Plain integers are read as seconds.
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
