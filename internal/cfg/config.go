package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort        string
	GRPCPort        string
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBSSLMode       string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaGroupID    string
	MongoURI        string
	MongoDatabase   string
	MongoAuditColl  string
	JWTSecret       string
	LogLevel        string
	LogFormat       string
	LogReportCaller bool
	CORSOrigins     []string

	RateLimitRequests   int
	RateLimitWindow     time.Duration
	TaskReuseWindow     time.Duration
	ShutdownGracePeriod time.Duration
	MaxBodyBytes        int64
}

// LoadConfig читает конфигурацию из .env и переменных окружения
func LoadConfig() Config {
	// Load .env if present (silently continue on error)
	if err := godotenv.Load(); err != nil {
		logrus.Debug(".env not found, using environment variables")
	}

	return Config{
		HTTPPort:        getEnv("HTTP_PORT", "8081"),
		GRPCPort:        getEnv("GRPC_PORT", "9091"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          getEnv("DB_NAME", "teamsync"),
		DBSSLMode:       getEnv("DB_SSLMODE", "disable"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:    splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "task-events"),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "notification-service"),
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "teamsync"),
		MongoAuditColl:  getEnv("MONGO_AUDIT_COLLECTION", "audit_log"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		LogReportCaller: getEnvBool("LOG_REPORT_CALLER", false),
		CORSOrigins:     splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),

		RateLimitRequests:   getEnvInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		TaskReuseWindow:     getEnvDuration("TASK_REUSE_WINDOW", 5*time.Minute),
		ShutdownGracePeriod: getEnvDuration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		MaxBodyBytes:        getEnvInt64("MAX_BODY_BYTES", 5<<20),
	}
}

// Validate проверяет обязательные параметры для запуска сервера
func (c Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	if c.DBUser == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.TaskReuseWindow < 0 {
		return fmt.Errorf("TASK_REUSE_WINDOW must not be negative")
	}
	return nil
}

// DSN собирает строку подключения к postgres
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
