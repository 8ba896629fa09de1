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

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	QRToken  QRTokenConfig
	MDM      MDMConfig
	Redis    RedisConfig
	AMQPURL  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// QRTokenConfig holds QR token signing configuration
type QRTokenConfig struct {
	Secret  string
	TTLDays int
}

// MDMConfig holds MDM provider configuration. An empty BaseURL puts the
// gateway in simulation mode.
type MDMConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// RedisConfig holds redis configuration for the per-device scan lease
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: loadDatabaseConfig(appMode),
		QRToken:  loadQRTokenConfig(appMode),
		MDM:      loadMDMConfig(),
		Redis:    loadRedisConfig(),
		AMQPURL:  getEnv("AMQP_URL", ""),
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "camlock"),
	}
}

func loadQRTokenConfig(mode string) QRTokenConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	ttlDays, _ := strconv.Atoi(getEnv("QR_TOKEN_TTL_DAYS", "30"))

	return QRTokenConfig{
		Secret:  getEnv(prefix+"QR_TOKEN_SECRET", "default_secret"),
		TTLDays: ttlDays,
	}
}

func loadMDMConfig() MDMConfig {
	timeout, _ := strconv.Atoi(getEnv("MDM_TIMEOUT_SECONDS", "10"))

	return MDMConfig{
		BaseURL:        getEnv("MDM_BASE_URL", ""),
		APIKey:         getEnv("MDM_API_KEY", ""),
		TimeoutSeconds: timeout,
	}
}

func loadRedisConfig() RedisConfig {
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// QRTokenTTL returns the QR token lifetime as a duration
func (c *Config) QRTokenTTL() time.Duration {
	return time.Duration(c.QRToken.TTLDays) * 24 * time.Hour
}

// MDMTimeout returns the MDM client timeout as a duration
func (c *Config) MDMTimeout() time.Duration {
	return time.Duration(c.MDM.TimeoutSeconds) * time.Second
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://app.camlock.io"
	}
	return origins
}
