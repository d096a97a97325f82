package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Vercel    VercelConfig
	Templates TemplatesConfig
	Cleanup   CleanupConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	App       AppConfig
}

type ServerConfig struct {
	Port string
	// AllowedOrigins is a comma-separated CORS allowlist; empty allows all.
	AllowedOrigins string
}

// VercelConfig holds credentials and defaults for the provisioning API.
type VercelConfig struct {
	APIURL              string
	AccessToken         string
	TeamID              string
	IntegrationConfigID string
	IntegrationID       string
	ProductID           string
	BillingPlanID       string
	Region              string
	DeployTimeout       time.Duration
}

type TemplatesConfig struct {
	Dir      string
	S3Bucket string
}

type CleanupConfig struct {
	CronSecret string
	Schedule   string
	RepoURL    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	DSN string
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Vercel: VercelConfig{
			APIURL:              getEnv("VERCEL_API_URL", "https://api.vercel.com"),
			AccessToken:         os.Getenv("ACCESS_TOKEN"),
			TeamID:              os.Getenv("TEAM_ID"),
			IntegrationConfigID: os.Getenv("INTEGRATION_CONFIG_ID"),
			IntegrationID:       getEnv("PRISMA_INTEGRATION_ID", "prisma"),
			ProductID:           getEnv("PRISMA_INTEGRATION_PRODUCT_ID", "iap_yVdbiKqs5fLkYDAB"),
			BillingPlanID:       getEnv("DEFAULT_BILLING_PLAN_ID", "business"),
			Region:              getEnv("DEFAULT_REGION", "iad1"),
			DeployTimeout:       getEnvAsDuration("DEPLOY_TIMEOUT", 4*time.Minute),
		},
		Templates: TemplatesConfig{
			Dir:      getEnv("TEMPLATES_DIR", "templates"),
			S3Bucket: os.Getenv("TEMPLATES_S3_BUCKET"),
		},
		Cleanup: CleanupConfig{
			CronSecret: os.Getenv("CRON_SECRET"),
			Schedule:   os.Getenv("CLEANUP_SCHEDULE"),
			RepoURL:    getEnv("REPO_URL", "https://github.com/claim-deploy/claim-deploy-backend"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			DSN: os.Getenv("DB_DSN"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Vercel.AccessToken == "" {
		return fmt.Errorf("ACCESS_TOKEN is required")
	}

	if c.Vercel.TeamID == "" {
		return fmt.Errorf("TEAM_ID is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
