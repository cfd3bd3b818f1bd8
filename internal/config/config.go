package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Config is the full environment surface of the service. Required values are
// validated up front: a missing credential must fail loudly at startup, never
// silently degrade mid-pipeline.
type Config struct {
	Port        string
	DatabaseURL string

	// Shared secrets for the inbound surfaces.
	CRMWebhookSecret string
	ServiceSecret    string

	// Google Ads.
	GoogleAdsClientID        string
	GoogleAdsClientSecret    string
	GoogleAdsRefreshToken    string
	GoogleAdsDeveloperToken  string
	GoogleAdsCustomerID      string
	GoogleAdsLoginCustomerID string
	GoogleAdsActionQualified string
	GoogleAdsActionClosed    string

	// RabbitMQ event fan-out (optional: empty host disables it).
	RabbitMQUser string
	RabbitMQPass string
	RabbitMQHost string
	RabbitMQPort string

	// Dead-letter alert email (optional: empty host disables it).
	MailHost   string
	MailPort   int
	MailUser   string
	MailPass   string
	AlertEmail string
}

// Load reads the environment and reports every missing required key at once,
// so operators fix the deployment in one pass.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		CRMWebhookSecret: os.Getenv("CRM_WEBHOOK_SECRET"),
		ServiceSecret:    os.Getenv("SERVICE_SECRET"),

		GoogleAdsClientID:        os.Getenv("GOOGLE_ADS_CLIENT_ID"),
		GoogleAdsClientSecret:    os.Getenv("GOOGLE_ADS_CLIENT_SECRET"),
		GoogleAdsRefreshToken:    os.Getenv("GOOGLE_ADS_REFRESH_TOKEN"),
		GoogleAdsDeveloperToken:  os.Getenv("GOOGLE_ADS_DEVELOPER_TOKEN"),
		GoogleAdsCustomerID:      os.Getenv("GOOGLE_ADS_CUSTOMER_ID"),
		GoogleAdsLoginCustomerID: os.Getenv("GOOGLE_ADS_LOGIN_CUSTOMER_ID"),
		GoogleAdsActionQualified: os.Getenv("GOOGLE_ADS_ACTION_QUALIFIED"),
		GoogleAdsActionClosed:    os.Getenv("GOOGLE_ADS_ACTION_CLOSED"),

		RabbitMQUser: os.Getenv("RABBITMQ_USER"),
		RabbitMQPass: os.Getenv("RABBITMQ_PASS"),
		RabbitMQHost: os.Getenv("RABBITMQ_HOST"),
		RabbitMQPort: getEnv("RABBITMQ_PORT", "5672"),

		MailHost:   os.Getenv("MAIL_HOST"),
		MailPort:   getEnvInt("MAIL_PORT", 587),
		MailUser:   os.Getenv("MAIL_USER"),
		MailPass:   os.Getenv("MAIL_PASS"),
		AlertEmail: os.Getenv("ALERT_EMAIL"),
	}

	required := map[string]string{
		"DATABASE_URL":                 cfg.DatabaseURL,
		"CRM_WEBHOOK_SECRET":           cfg.CRMWebhookSecret,
		"SERVICE_SECRET":               cfg.ServiceSecret,
		"GOOGLE_ADS_CLIENT_ID":         cfg.GoogleAdsClientID,
		"GOOGLE_ADS_CLIENT_SECRET":     cfg.GoogleAdsClientSecret,
		"GOOGLE_ADS_REFRESH_TOKEN":     cfg.GoogleAdsRefreshToken,
		"GOOGLE_ADS_DEVELOPER_TOKEN":   cfg.GoogleAdsDeveloperToken,
		"GOOGLE_ADS_CUSTOMER_ID":       cfg.GoogleAdsCustomerID,
		"GOOGLE_ADS_LOGIN_CUSTOMER_ID": cfg.GoogleAdsLoginCustomerID,
		"GOOGLE_ADS_ACTION_QUALIFIED":  cfg.GoogleAdsActionQualified,
		"GOOGLE_ADS_ACTION_CLOSED":     cfg.GoogleAdsActionClosed,
	}

	var missing []string
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// ConversionActions returns the per-type platform action mapping for the
// upload client.
func (c *Config) ConversionActions() map[string]string {
	return map[string]string{
		"qualified": c.GoogleAdsActionQualified,
		"closed":    c.GoogleAdsActionClosed,
	}
}

func (c *Config) RabbitMQEnabled() bool {
	return c.RabbitMQHost != ""
}

func (c *Config) MailEnabled() bool {
	return c.MailHost != "" && c.AlertEmail != ""
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
