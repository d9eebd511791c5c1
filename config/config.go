package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Statement backends
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

// Aggregation modes. Scan streams statements and groups them in process.
const (
	AggregationNative = "native"
	AggregationScan   = "scan"
)

type Config struct {
	Port                string
	ServiceEnv          string
	JWTSecret           string
	JWTAccessExpiration time.Duration
	FrontendURL         string

	StatementBackend string
	MongoDBURI       string
	MongoDBDatabase  string
	SQLitePath       string
	AggregationMode  string

	QueryTimeout        time.Duration
	StatsReportInterval time.Duration

	BootstrapClientID     string
	BootstrapClientSecret string

	OTLPEndpoint string
	OTLPInsecure bool
	LogLevel     string
	LogFormat    string
}

func Load() *Config {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		ServiceEnv:            getEnv("SERVICE_ENV", "development"),
		JWTSecret:             getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiration:   getDuration("JWT_ACCESS_EXPIRATION", 15*time.Minute),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
		StatementBackend:      getEnv("STATEMENT_BACKEND", BackendMongo),
		MongoDBURI:            getEnv("MONGODB_URI", ""),
		MongoDBDatabase:       getEnv("MONGODB_DATABASE", "lrs"),
		SQLitePath:            getEnv("SQLITE_PATH", "data/lrs.db"),
		AggregationMode:       getEnv("AGGREGATION_MODE", AggregationNative),
		QueryTimeout:          getDuration("QUERY_TIMEOUT", 30*time.Second),
		StatsReportInterval:   getDuration("STATS_REPORT_INTERVAL", time.Minute),
		BootstrapClientID:     getEnv("BOOTSTRAP_CLIENT_ID", ""),
		BootstrapClientSecret: getEnv("BOOTSTRAP_CLIENT_SECRET", ""),
		OTLPEndpoint:          getEnv("OTLP_ENDPOINT", ""),
		OTLPInsecure:          getBool("OTLP_INSECURE", false),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}
