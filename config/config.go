package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

type MongoConfig struct {
	URI        string
	Host       string
	Port       string
	Database   string
	Username   string
	Password   string
	AuthSource string
}

type Config struct {
	AppHost     string
	AppPort     string
	AppEnv      string
	FrontendURL string
	LogDir      string

	StoreDriver string
	Postgres    PostgresConfig
	Mongo       MongoConfig

	JWTSecret string
	JWTExpiry time.Duration

	AMQPURL string
}

// Load reads .env (if present) and then the process environment.
// The returned error only reports a missing or unreadable .env file; defaults still apply.
func Load() (*Config, error) {
	envErr := godotenv.Load()

	cfg := &Config{
		AppHost:     getEnv("APP_HOST", "0.0.0.0"),
		AppPort:     getEnv("APP_PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		LogDir:      getEnv("LOG_DIR", "log/app"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Database: getEnv("DB_DATABASE", "ecochain"),
			Username: getEnv("DB_USERNAME", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:        os.Getenv("MONGO_URL"),
			Host:       getEnv("MONGO_HOST", "localhost"),
			Port:       getEnv("MONGO_PORT", "27017"),
			Database:   getEnv("MONGO_DATABASE", "ecochain"),
			Username:   os.Getenv("MONGO_USERNAME"),
			Password:   os.Getenv("MONGO_PASSWORD"),
			AuthSource: getEnv("MONGO_AUTH_SOURCE", "admin"),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 8)) * time.Hour,
		AMQPURL:   os.Getenv("AMQP_URL"),
	}
	return cfg, envErr
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) ListenAddr() string {
	return c.AppHost + ":" + c.AppPort
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
