package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // LEADS_TIMEZONE must resolve on images without zoneinfo

	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/spf13/viper"
)

// Email providers supported by pkg/email
const (
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
	EmailProviderLog      = "log"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Sheets        SheetsConfig
	Email         EmailConfig
	Site          SiteConfig
	ReCAPTCHA     ReCAPTCHAConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

// SheetsConfig is the Google Sheets destination of the lead log
type SheetsConfig struct {
	SpreadsheetID string
	ClientEmail   string
	PrivateKey    string
	TimeZone      string
	Location      *time.Location
}

type EmailConfig struct {
	Provider          string
	From              string
	NotifyTo          string
	SendGridAPIKey    string
	SESRegion         string
	SESAccessKeyID    string
	SESSecretKey      string
	RequestTimeoutSec int
}

type SiteConfig struct {
	URL string
}

type ReCAPTCHAConfig struct {
	SecretKey string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "8081")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "https://www.kardan.dev,https://kardan.dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")
	v.SetDefault("LEADS_TIMEZONE", "UTC")
	v.SetDefault("EMAIL_PROVIDER", EmailProviderSendGrid)
	v.SetDefault("EMAIL_FROM", "Kardan Studio <no-reply@kardan.dev>")
	v.SetDefault("EMAIL_REQUEST_TIMEOUT_SECONDS", 15)
	v.SetDefault("SITE_URL", "https://www.kardan.dev")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_BE_SERVICE_NAME", "kardan-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "kardan-dev")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "kardan-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Sheets: SheetsConfig{
			SpreadsheetID: strings.TrimSpace(v.GetString("GOOGLE_SHEETS_SPREADSHEET_ID")),
			ClientEmail:   strings.TrimSpace(v.GetString("GOOGLE_SHEETS_CLIENT_EMAIL")),
			PrivateKey:    UnescapePrivateKey(v.GetString("GOOGLE_SHEETS_PRIVATE_KEY")),
			TimeZone:      strings.TrimSpace(v.GetString("LEADS_TIMEZONE")),
		},
		Email: EmailConfig{
			Provider:          strings.ToLower(strings.TrimSpace(v.GetString("EMAIL_PROVIDER"))),
			From:              v.GetString("EMAIL_FROM"),
			NotifyTo:          strings.TrimSpace(v.GetString("LEADS_NOTIFY_TO")),
			SendGridAPIKey:    v.GetString("SENDGRID_API_KEY"),
			SESRegion:         v.GetString("AWS_SES_REGION"),
			SESAccessKeyID:    v.GetString("AWS_ACCESS_KEY_ID"),
			SESSecretKey:      v.GetString("AWS_SECRET_ACCESS_KEY"),
			RequestTimeoutSec: v.GetInt("EMAIL_REQUEST_TIMEOUT_SECONDS"),
		},
		Site: SiteConfig{
			URL: strings.TrimRight(v.GetString("SITE_URL"), "/"),
		},
		ReCAPTCHA: ReCAPTCHAConfig{
			SecretKey: v.GetString("RECAPTCHA_SECRET_KEY"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration values are set.
// It also resolves Sheets.Location from Sheets.TimeZone.
func (c *Config) Validate() error {
	// Server configuration
	if c.Server.Port == "" {
		return apperrors.MissingConfig("PORT")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return apperrors.MissingConfig("ALLOWED_CORS_ORIGINS")
	}

	// Lead log spreadsheet
	if c.Sheets.SpreadsheetID == "" {
		return apperrors.MissingConfig("GOOGLE_SHEETS_SPREADSHEET_ID")
	}
	if c.Sheets.ClientEmail == "" {
		return apperrors.MissingConfig("GOOGLE_SHEETS_CLIENT_EMAIL")
	}
	if c.Sheets.PrivateKey == "" {
		return apperrors.MissingConfig("GOOGLE_SHEETS_PRIVATE_KEY")
	}
	if c.Sheets.TimeZone == "" {
		c.Sheets.TimeZone = "UTC"
	}
	loc, err := time.LoadLocation(c.Sheets.TimeZone)
	if err != nil {
		return fmt.Errorf("LEADS_TIMEZONE %q is not a valid IANA time zone: %w: %w", c.Sheets.TimeZone, err, apperrors.ErrConfiguration)
	}
	c.Sheets.Location = loc

	// Email
	if c.Email.From == "" {
		return apperrors.MissingConfig("EMAIL_FROM")
	}
	if c.Email.NotifyTo == "" {
		return apperrors.MissingConfig("LEADS_NOTIFY_TO")
	}
	switch c.Email.Provider {
	case EmailProviderSendGrid:
		if c.Email.SendGridAPIKey == "" {
			return apperrors.MissingConfig("SENDGRID_API_KEY")
		}
	case EmailProviderSES:
		if c.Email.SESRegion == "" {
			return apperrors.MissingConfig("AWS_SES_REGION")
		}
		if c.Email.SESAccessKeyID == "" {
			return apperrors.MissingConfig("AWS_ACCESS_KEY_ID")
		}
		if c.Email.SESSecretKey == "" {
			return apperrors.MissingConfig("AWS_SECRET_ACCESS_KEY")
		}
	case EmailProviderLog:
	default:
		return fmt.Errorf("EMAIL_PROVIDER %q must be one of sendgrid, ses, log: %w", c.Email.Provider, apperrors.ErrConfiguration)
	}

	if c.Site.URL == "" {
		return apperrors.MissingConfig("SITE_URL")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return apperrors.MissingConfig("O11Y_PROFILING_ENDPOINT")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}

// UnescapePrivateKey turns the literal "\n" sequences that env files use for
// PEM line breaks back into newlines.
func UnescapePrivateKey(key string) string {
	return strings.TrimSpace(strings.ReplaceAll(key, `\n`, "\n"))
}

// splitList parses a comma-separated list, dropping blanks
func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
