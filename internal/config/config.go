package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the binaries read from the environment.
type Config struct {
	HTTPPort string
	Debug    bool

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	AllegroAuthURL string
	AllegroAPIURL  string

	SyncInterval time.Duration
	SyncPageSize int
	SyncMaxPages int

	DefaultCurrency    string
	DefaultCountryCode string

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads .env (when present next to the working directory or one of its
// parents) and assembles the config with defaults for everything optional.
func Load() Config {
	loadDotEnv()

	return Config{
		HTTPPort: getEnv("HTTP_PORT", "9000"),
		Debug:    getEnvBool("DEBUG", false),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("POSTGRES_USER", "postgres"),
		DBPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		DBName:     getEnv("POSTGRES_DB", "orders"),

		AllegroAuthURL: getEnv("ALLEGRO_AUTH_URL", "https://allegro.pl"),
		AllegroAPIURL:  getEnv("ALLEGRO_API_URL", "https://api.allegro.pl"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 3*time.Minute),
		SyncPageSize: getEnvInt("SYNC_PAGE_SIZE", 100),
		SyncMaxPages: getEnvInt("SYNC_MAX_PAGES", 1),

		DefaultCurrency:    getEnv("DEFAULT_CURRENCY", "PLN"),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "PL"),

		KafkaBrokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
		KafkaTopic:   getEnv("KAFKA_TOPIC", "orders.created"),
	}
}

// DSN renders the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	for _, dir := range []string{wd, filepath.Join(wd, ".."), filepath.Join(wd, "..", "..")} {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
			return
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
