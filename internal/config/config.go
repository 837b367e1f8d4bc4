package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"ledgerflow/internal/logger"
)

const defaultJWTSecret = "changeme-ledgerflow-secret"

type Config struct {
	Env         string   `yaml:"env"`
	Addr        string   `yaml:"addr"`
	AppBaseURL  string   `yaml:"app_base_url"`
	CORSOrigins []string `yaml:"cors_origins"`
	SeedDev     bool     `yaml:"seed_dev"`

	DBDriver    string `yaml:"db_driver"`
	DatabaseURL string `yaml:"database_url"`
	DBUser      string `yaml:"db_user"`
	DBPass      string `yaml:"db_pass"`
	DBHost      string `yaml:"db_host"`
	DBPort      string `yaml:"db_port"`
	DBName      string `yaml:"db_name"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	HTTPTimeout time.Duration `yaml:"http_timeout"`
	AlertEmails []string      `yaml:"alert_emails"`

	Square SquareConfig `yaml:"square"`
	Resend ResendConfig `yaml:"resend"`
	Twilio TwilioConfig `yaml:"twilio"`

	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogTimeFormat string `yaml:"log_time_format"`
	LogOutput     string `yaml:"log_output"`
}

type SquareConfig struct {
	AccessToken            string `yaml:"access_token"`
	LocationID             string `yaml:"location_id"`
	Environment            string `yaml:"environment"`
	APIVersion             string `yaml:"api_version"`
	BaseURL                string `yaml:"base_url"`
	RedirectURL            string `yaml:"redirect_url"`
	WebhookSignatureKey    string `yaml:"webhook_signature_key"`
	WebhookNotificationURL string `yaml:"webhook_notification_url"`
}

type ResendConfig struct {
	APIKey  string `yaml:"api_key"`
	From    string `yaml:"from"`
	BaseURL string `yaml:"base_url"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
	BaseURL    string `yaml:"base_url"`
}

func defaults() Config {
	return Config{
		Env:         "development",
		Addr:        ":8080",
		AppBaseURL:  "http://localhost:8080",
		CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		DBDriver:    "mysql",
		DBUser:      "root",
		DBHost:      "127.0.0.1",
		DBPort:      "3306",
		DBName:      "ledgerflow",
		JWTSecret:   defaultJWTSecret,
		TokenTTL:    24 * time.Hour,
		HTTPTimeout: 15 * time.Second,
		Square: SquareConfig{
			Environment: "sandbox",
			APIVersion:  "2024-07-17",
		},
		Resend: ResendConfig{
			From:    "Ledgerflow <invoices@ledgerflow.app>",
			BaseURL: "https://api.resend.com",
		},
		Twilio: TwilioConfig{
			BaseURL: "https://api.twilio.com",
		},
		LogLevel:      "info",
		LogFormat:     "console",
		LogTimeFormat: time.RFC3339,
		LogOutput:     "stdout",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// path (or LEDGERFLOW_CONFIG) if any, then environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("LEDGERFLOW_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Env, "APP_ENV")
	setString(&c.Addr, "ADDR")
	setString(&c.AppBaseURL, "APP_BASE_URL")
	setList(&c.CORSOrigins, "CORS_ORIGINS")
	setBool(&c.SeedDev, "SEED_DEV")

	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPass, "DB_PASS")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBName, "DB_NAME")

	setString(&c.JWTSecret, "JWT_SECRET")
	setDuration(&c.TokenTTL, "TOKEN_TTL")
	setDuration(&c.HTTPTimeout, "HTTP_TIMEOUT")
	setList(&c.AlertEmails, "ALERT_EMAILS")

	setString(&c.Square.AccessToken, "SQUARE_ACCESS_TOKEN")
	setString(&c.Square.LocationID, "SQUARE_LOCATION_ID")
	setString(&c.Square.Environment, "SQUARE_ENVIRONMENT")
	setString(&c.Square.APIVersion, "SQUARE_API_VERSION")
	setString(&c.Square.BaseURL, "SQUARE_BASE_URL")
	setString(&c.Square.RedirectURL, "SQUARE_REDIRECT_URL")
	setString(&c.Square.WebhookSignatureKey, "SQUARE_WEBHOOK_SIGNATURE_KEY")
	setString(&c.Square.WebhookNotificationURL, "SQUARE_WEBHOOK_NOTIFICATION_URL")

	setString(&c.Resend.APIKey, "RESEND_API_KEY")
	setString(&c.Resend.From, "EMAIL_FROM")
	setString(&c.Resend.BaseURL, "RESEND_BASE_URL")

	setString(&c.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	setString(&c.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	setString(&c.Twilio.From, "TWILIO_FROM_NUMBER")
	setString(&c.Twilio.BaseURL, "TWILIO_BASE_URL")

	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.LogTimeFormat, "LOG_TIME_FORMAT")
	setString(&c.LogOutput, "LOG_OUTPUT")
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be mysql, postgres or sqlite, got %q", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for postgres")
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// UsesDefaultSecret reports whether the JWT secret was left at its default.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

// DSN returns the driver-specific data source name.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	switch c.DBDriver {
	case "sqlite":
		return c.DBName + ".db"
	default:
		return c.MySQLDSN()
	}
}

func (c *Config) MySQLDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPass
	mc.Net = "tcp"
	mc.Addr = c.DBHost + ":" + c.DBPort
	mc.DBName = c.DBName
	mc.ParseTime = true
	// RowsAffected reports matched rows, so an update that rewrites the same
	// values is not mistaken for a missing row.
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// SquareBaseURL resolves the API host for the configured environment.
func (c *Config) SquareBaseURL() string {
	if c.Square.BaseURL != "" {
		return c.Square.BaseURL
	}
	if strings.EqualFold(c.Square.Environment, "production") {
		return "https://connect.squareup.com"
	}
	return "https://connect.squareupsandbox.com"
}

func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	*dst = SplitList(v)
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
