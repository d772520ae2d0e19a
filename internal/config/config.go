package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBLogLevel        string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers             []string
	KafkaClassificationTopic string

	OpsHTTPAddr string

	SchedulerInterval    time.Duration
	SchedulerBatchSize   int
	SchedulerConcurrency int
	SchedulerJobs        []string
	ScoringConfigPath    string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:                  getenv("APP_SERVICE", "showcase"),
		AppVersion:               getenv("APP_VERSION", "0.1.0"),
		Environment:              getenv("ENVIRONMENT", "development"),
		LogLevel:                 strings.ToLower(getenv("LOG_LEVEL", "info")),
		DBType:                   getenv("DATABASE_TYPE", "postgres"),
		DBHost:                   getenv("DATABASE_HOST", "localhost"),
		DBPort:                   getenv("DATABASE_PORT", "5432"),
		DBName:                   getenv("DATABASE_NAME", "showcase"),
		DBUser:                   getenv("DATABASE_USER", "postgres"),
		DBPassword:               getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:                getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:            getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:            getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:        getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime:        getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		DBLogLevel:               strings.ToLower(getenv("DATABASE_LOG_LEVEL", "warn")),
		RedisAddr:                strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:            getenv("REDIS_PASSWORD", ""),
		RedisDB:                  getenvInt("REDIS_DB", 0),
		KafkaBrokers:             parseList(getenv("KAFKA_BROKERS", "")),
		KafkaClassificationTopic: getenv("KAFKA_CLASSIFICATION_TOPIC", "catalog.product.classification"),
		OpsHTTPAddr:              getenv("OPS_HTTP_ADDR", ":9090"),
		SchedulerInterval:        getenvDuration("SCHEDULER_INTERVAL", time.Minute),
		SchedulerBatchSize:       getenvInt("SCHEDULER_BATCH_SIZE", 100),
		SchedulerConcurrency:     getenvInt("SCHEDULER_CONCURRENCY", 4),
		SchedulerJobs:            parseList(getenv("SCHEDULER_JOBS", "")),
		ScoringConfigPath:        strings.TrimSpace(getenv("SCORING_CONFIG_PATH", "")),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
