package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Env             string
	Port            string
	Store           string
	MongoURI        string
	DBName          string
	JWTSecret       string
	RequestTimeout  time.Duration
	RedisAddr       string
	RedisPassword   string
	ProductCacheTTL time.Duration
	KafkaBrokers    []string
	KafkaOrderTopic string
	CORSOrigins     []string
}

// Load reads .env (when present) and the process environment into AppEnv.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() Config {
	return Config{
		Env:             getEnvOrDefault("APP_ENV", "development"),
		Port:            getEnvOrDefault("PORT", "8080"),
		Store:           strings.ToLower(getEnvOrDefault("STORE", "mongo")),
		MongoURI:        getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnvOrDefault("DB_NAME", "storefront"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", 5, time.Second),
		RedisAddr:       getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword:   getEnvOrDefault("REDIS_PASSWORD", ""),
		ProductCacheTTL: getDurationEnv("PRODUCT_CACHE_TTL", 60, time.Second),
		KafkaBrokers:    getListEnv("KAFKA_BROKERS"),
		KafkaOrderTopic: getEnvOrDefault("KAFKA_ORDER_TOPIC", "orders"),
		CORSOrigins:     getListEnv("CORS_ORIGINS"),
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
