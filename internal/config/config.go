// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultCORSOrigins is the allow-list used when CORS_ORIGINS is empty.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"https://utleieskade.no",
	"https://www.utleieskade.no",
	"https://admin.utleieskade.no",
}

type Config struct {
	Env           string
	Port          string
	PublicBaseURL string
	CORSOrigins   []string

	Database DatabaseConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	SMTP     SMTPConfig
	S3       S3Config
	Redis    RedisConfig

	UploadDir string
	LogLevel  string
	LogFile   string
}

type DatabaseConfig struct {
	Dialect      string
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	AutoMigrate  bool
}

type JWTConfig struct {
	Secret      string
	TTL         time.Duration // "remember me" logins and registration
	SessionTTL  time.Duration
	ElevatedTTL time.Duration
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Enabled reports whether outbound mail is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether blob storage is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:           v.GetString("APP_ENV"),
		Port:          v.GetString("PORT"),
		PublicBaseURL: strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		CORSOrigins:   splitList(v.GetString("CORS_ORIGINS")),
		Database: DatabaseConfig{
			Dialect:      strings.ToLower(v.GetString("DB_DIALECT")),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			TTL:         v.GetDuration("JWT_TTL"),
			SessionTTL:  v.GetDuration("JWT_SESSION_TTL"),
			ElevatedTTL: v.GetDuration("JWT_ELEVATED_TTL"),
		},
		Stripe: StripeConfig{
			SecretKey: v.GetString("STRIPE_SECRET_KEY"),
			Currency:  strings.ToLower(v.GetString("CURRENCY")),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			FromName: v.GetString("SMTP_FROM_NAME"),
		},
		S3: S3Config{
			Bucket:          v.GetString("S3_BUCKET"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		UploadDir: v.GetString("UPLOAD_DIR"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFile:   v.GetString("LOG_FILE"),
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = DefaultCORSOrigins
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("DB_DIALECT", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("JWT_TTL", 7*24*time.Hour)
	v.SetDefault("JWT_SESSION_TTL", 24*time.Hour)
	v.SetDefault("JWT_ELEVATED_TTL", 30*time.Minute)
	v.SetDefault("CURRENCY", "nok")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_NAME", "Utleieskade")
	v.SetDefault("S3_REGION", "eu-north-1")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("LOG_LEVEL", "INFO")
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Database.Dialect {
	case "postgres", "mysql":
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required for dialect %s", c.Database.Dialect)
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DIALECT %q", c.Database.Dialect)
	}
	if c.JWT.TTL <= 0 || c.JWT.SessionTTL <= 0 || c.JWT.ElevatedTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	return nil
}

// IsProduction reports whether internal error details must be hidden.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment reports whether stack traces may be returned to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
