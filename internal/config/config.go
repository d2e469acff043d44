package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env           string
	Port          string
	SessionSecret string
	DatabaseURL   string
	RedisURL      string

	// Identity directory (machine-to-machine management API).
	DirectoryBaseURL      string
	DirectoryClientID     string
	DirectoryClientSecret string
	DirectoryAudience     string

	// Brevo transactional email.
	SendinblueAPIKey string // SENDINBLUE_API_KEY
	MailFrom         string // MAIL_FROM sender address

	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKeyHash  string // bcrypt hash of the health admin key
	InviteBaseURL       string // base URL embedded in invite emails
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	return &Config{
		Env:                   env,
		Port:                  port,
		SessionSecret:         viper.GetString("SESSION_SECRET"),
		DatabaseURL:           dbURL,
		RedisURL:              viper.GetString("REDIS_URL"),
		DirectoryBaseURL:      viper.GetString("DIRECTORY_BASE_URL"),
		DirectoryClientID:     viper.GetString("DIRECTORY_CLIENT_ID"),
		DirectoryClientSecret: viper.GetString("DIRECTORY_CLIENT_SECRET"),
		DirectoryAudience:     viper.GetString("DIRECTORY_AUDIENCE"),
		SendinblueAPIKey:      viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:              viper.GetString("MAIL_FROM"),
		FrontendURLEndsWith:   viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:           viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:     strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKeyHash:    viper.GetString("HEALTH_ADMIN_KEY_HASH"),
		InviteBaseURL:         inviteBaseURL(viper.GetString("INVITE_BASE_URL")),
	}, nil
}

func inviteBaseURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "https://app.agenthq.dev"
	}
	return s
}
