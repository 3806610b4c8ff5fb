package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	AppURL                    string
	Admin                     AdminConfig
	Database                  DatabaseConfig
	Redis                     RedisConfig
	Mailer                    MailerConfig
	Notifier                  NotifierConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// AdminConfig seeds the first administrator account when both fields are set.
type AdminConfig struct {
	Email    string
	Password string
}

// RedisConfig holds the connection used for cross-instance slot locks.
// An empty Address disables redis and falls back to in-process locking.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	LockTTL  time.Duration
}

// MailerConfig holds email service configuration
type MailerConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DefaultFrom string
}

// NotifierConfig sizes the notification queue and worker pool.
type NotifierConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "healthcare"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	lockTTLSeconds, err := getEnvInt("REDIS_LOCK_TTL_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	redisConfig := RedisConfig{
		Address:  getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		LockTTL:  time.Duration(lockTTLSeconds) * time.Second,
	}

	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	mailerConfig := MailerConfig{
		Host:        getEnv("SMTP_HOST", ""),
		Port:        smtpPort,
		Username:    getEnv("SMTP_USERNAME", ""),
		Password:    getEnv("SMTP_PASSWORD", ""),
		DefaultFrom: getEnv("MAILER_DEFAULT_FROM", "no-reply@healthcare.local"),
	}

	queueSize, err := getEnvInt("NOTIFY_QUEUE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("NOTIFY_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	sendTimeoutSeconds, err := getEnvInt("NOTIFY_SEND_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	if queueSize < 1 || workers < 1 {
		return nil, fmt.Errorf("NOTIFY_QUEUE_SIZE and NOTIFY_WORKERS must be positive")
	}
	notifierConfig := NotifierConfig{
		QueueSize:   queueSize,
		Workers:     workers,
		SendTimeout: time.Duration(sendTimeoutSeconds) * time.Second,
	}

	jwtExpMinutes, err := getEnvInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}

	jwtRefreshExpHours, err := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:4200"),
		Environment:               getEnv("APP_ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		AppURL:                    getEnv("APP_URL", "http://localhost:4200"),
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Database: dbConfig,
		Redis:    redisConfig,
		Mailer:   mailerConfig,
		Notifier: notifierConfig,
	}, nil
}

// IsProduction reports whether cookies and similar settings should be hardened.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
