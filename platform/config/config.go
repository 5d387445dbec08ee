// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// CronConfig provides the shared secret protecting batch trigger endpoints.
type CronConfig interface {
	GetCronSecret() string
}

// EmailConfig provides settings for transactional email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetBrevoAPIKey() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
}

// SMSConfig provides settings for the SMS gateway.
type SMSConfig interface {
	GetSMSAPIURL() string
	GetSMSAPIKey() string
	GetSMSFromNumber() string
	IsSMSEnabled() bool
}

// MLSConfig provides settings for the external listing authority client.
type MLSConfig interface {
	GetMLSAPIBaseURL() string
	GetMLSRequestTimeout() time.Duration
	GetMLSSyncInterval() time.Duration
}

// SocialConfig provides settings for the social platform gateway used
// by the unpublish cascade.
type SocialConfig interface {
	GetSocialAPIBaseURL() string
	GetSocialRequestTimeout() time.Duration
}

// ProcessorConfig provides tuning for the touchpoint batch processor.
type ProcessorConfig interface {
	GetTouchpointBatchSize() int
	GetTouchpointRetryCeiling() int
	GetTouchpointItemTimeout() time.Duration
	GetTouchpointLease() time.Duration
	GetTrackingBaseURL() string
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketSessionQR() string
	IsMinIOEnabled() bool
}

// AIConfig provides settings for the generative-AI personalizer.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	IsAIEnabled() bool
}

// AppConfig provides settings shared by link builders and notifications.
type AppConfig interface {
	GetAppBaseURL() string
	GetPublicBaseURL() string
}

// SequenceConfig locates the default follow-up sequence definition file.
type SequenceConfig interface {
	GetSequenceDefaultsPath() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool
	AppBaseURL      string
	PublicBaseURL   string
	CronSecret      string

	EmailEnabled     bool
	BrevoAPIKey      string
	EmailFromName    string
	EmailFromAddress string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string

	SMSAPIURL     string
	SMSAPIKey     string
	SMSFromNumber string

	MLSAPIBaseURL     string
	MLSRequestTimeout time.Duration
	MLSSyncInterval   time.Duration

	SocialAPIBaseURL     string
	SocialRequestTimeout time.Duration

	TouchpointBatchSize    int
	TouchpointRetryCeiling int
	TouchpointItemTimeout  time.Duration
	TouchpointLease        time.Duration

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOUseSSL          bool
	MinioBucketSessionQR string

	GeminiAPIKey string
	GeminiModel  string

	SequenceDefaultsPath string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// CronConfig implementation
func (c *Config) GetCronSecret() string { return c.CronSecret }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }

// SMSConfig implementation
func (c *Config) GetSMSAPIURL() string     { return c.SMSAPIURL }
func (c *Config) GetSMSAPIKey() string     { return c.SMSAPIKey }
func (c *Config) GetSMSFromNumber() string { return c.SMSFromNumber }
func (c *Config) IsSMSEnabled() bool       { return c.SMSAPIURL != "" }

// MLSConfig implementation
func (c *Config) GetMLSAPIBaseURL() string            { return c.MLSAPIBaseURL }
func (c *Config) GetMLSRequestTimeout() time.Duration { return c.MLSRequestTimeout }
func (c *Config) GetMLSSyncInterval() time.Duration   { return c.MLSSyncInterval }

// SocialConfig implementation
func (c *Config) GetSocialAPIBaseURL() string            { return c.SocialAPIBaseURL }
func (c *Config) GetSocialRequestTimeout() time.Duration { return c.SocialRequestTimeout }

// ProcessorConfig implementation
func (c *Config) GetTouchpointBatchSize() int             { return c.TouchpointBatchSize }
func (c *Config) GetTouchpointRetryCeiling() int          { return c.TouchpointRetryCeiling }
func (c *Config) GetTouchpointItemTimeout() time.Duration { return c.TouchpointItemTimeout }
func (c *Config) GetTouchpointLease() time.Duration       { return c.TouchpointLease }
func (c *Config) GetTrackingBaseURL() string              { return c.AppBaseURL }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string        { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string       { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string       { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool            { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketSessionQR() string { return c.MinioBucketSessionQR }
func (c *Config) IsMinIOEnabled() bool            { return c.MinIOEndpoint != "" }

// AIConfig implementation
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string  { return c.GeminiModel }
func (c *Config) IsAIEnabled() bool       { return c.GeminiAPIKey != "" }

// AppConfig implementation
func (c *Config) GetAppBaseURL() string    { return c.AppBaseURL }
func (c *Config) GetPublicBaseURL() string { return c.PublicBaseURL }

// SequenceConfig implementation
func (c *Config) GetSequenceDefaultsPath() string { return c.SequenceDefaultsPath }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	brevoAPIKey := getEnv("BREVO_API_KEY", "")
	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:4200"),
		CronSecret:      getEnv("CRON_SECRET", ""),

		EmailEnabled:     emailEnabled && (brevoAPIKey != "" || smtpHost != ""),
		BrevoAPIKey:      brevoAPIKey,
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Bayon"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		SMTPHost:         smtpHost,
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),

		SMSAPIURL:     getEnv("SMS_API_URL", ""),
		SMSAPIKey:     getEnv("SMS_API_KEY", ""),
		SMSFromNumber: getEnv("SMS_FROM_NUMBER", ""),

		MLSAPIBaseURL:     getEnv("MLS_API_BASE_URL", ""),
		MLSRequestTimeout: mustDuration(getEnv("MLS_REQUEST_TIMEOUT", "15s")),
		MLSSyncInterval:   mustDuration(getEnv("MLS_SYNC_INTERVAL", "15m")),

		SocialAPIBaseURL:     getEnv("SOCIAL_API_BASE_URL", ""),
		SocialRequestTimeout: mustDuration(getEnv("SOCIAL_REQUEST_TIMEOUT", "15s")),

		TouchpointBatchSize:    mustInt(getEnv("TOUCHPOINT_BATCH_SIZE", "200")),
		TouchpointRetryCeiling: mustInt(getEnv("TOUCHPOINT_RETRY_CEILING", "3")),
		TouchpointItemTimeout:  mustDuration(getEnv("TOUCHPOINT_ITEM_TIMEOUT", "15s")),
		TouchpointLease:        mustDuration(getEnv("TOUCHPOINT_LEASE", "2m")),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		MinIOEndpoint:        getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:          strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketSessionQR: getEnv("MINIO_BUCKET_SESSION_QR", "session-qr"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		SequenceDefaultsPath: getEnv("FOLLOWUP_SEQUENCE_FILE", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if emailEnabled && cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.TouchpointBatchSize < 1 {
		return nil, fmt.Errorf("TOUCHPOINT_BATCH_SIZE must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
