package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AppName        string
	AllowedOrigins []string // CORS allowed origins

	EmailProvider string // "emailjs" | "sendgrid" | "smtp"
	EmailJS       EmailJS
	SendGrid      SendGrid
	SMTPHost      string
	SMTPPort      string
	SMTPFrom      string
	SMTPUsername  string
	SMTPPassword  string

	UserAPIURL         string
	UserAPITimeout     time.Duration
	UserAPIInsecureTLS bool // the user backend runs on a self-signed dev cert locally
	ResetLinkBaseURL   string

	Verification Verification

	RedisURL string

	AWSRegion           string
	AWSEndpointURL      string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID      string
	AWSSecretKey        string
	DynamoVerifications string
	S3InvoiceBucket     string // empty disables invoice archiving
	SNSAlertTopicARN    string // empty disables delivery-failure alerts
}

// EmailJS holds the EmailJS account and template identifiers.
type EmailJS struct {
	BaseURL           string
	ServiceID         string
	PublicKey         string
	PrivateKey        string
	Templates         Templates
	RequestsPerSecond float64
}

// SendGrid holds the SendGrid API key, sender and dynamic template identifiers.
type SendGrid struct {
	APIKey    string
	FromEmail string
	FromName  string
	Templates Templates
}

// Templates maps each email kind to a provider template identifier.
type Templates struct {
	Verification  string
	PasswordReset string
	Invoice       string
}

// Verification configures the verification-code lifecycle.
type Verification struct {
	TTL         time.Duration
	MaxAttempts int
	CodeLength  int
	Store       string // "memory" | "redis" | "dynamo"
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3001"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AppName:        getEnv("APP_NAME", "Sistema TCC"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),

		EmailProvider: strings.ToLower(getEnv("EMAIL_PROVIDER", "emailjs")),
		EmailJS: EmailJS{
			BaseURL:    getEnv("EMAILJS_BASE_URL", "https://api.emailjs.com"),
			ServiceID:  getEnv("EMAILJS_SERVICE_ID", ""),
			PublicKey:  getEnv("EMAILJS_PUBLIC_KEY", ""),
			PrivateKey: getEnv("EMAILJS_PRIVATE_KEY", ""),
			Templates: Templates{
				Verification:  getEnv("EMAILJS_TEMPLATE_VERIFICATION", "template_verification"),
				PasswordReset: getEnv("EMAILJS_TEMPLATE_PASSWORD_RESET", "template_password_reset"),
				Invoice:       getEnv("EMAILJS_TEMPLATE_INVOICE", "template_invoice"),
			},
			RequestsPerSecond: getEnvFloat("EMAILJS_REQUESTS_PER_SECOND", 1),
		},
		SendGrid: SendGrid{
			APIKey:    getEnv("SENDGRID_API_KEY", ""),
			FromEmail: getEnv("SENDGRID_FROM_EMAIL", "noreply@example.com"),
			FromName:  getEnv("SENDGRID_FROM_NAME", "Sistema TCC"),
			Templates: Templates{
				Verification:  getEnv("SENDGRID_TEMPLATE_VERIFICATION", ""),
				PasswordReset: getEnv("SENDGRID_TEMPLATE_PASSWORD_RESET", ""),
				Invoice:       getEnv("SENDGRID_TEMPLATE_INVOICE", ""),
			},
		},
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		UserAPIURL:         strings.TrimRight(getEnv("USER_API_URL", "https://localhost:7155/api"), "/"),
		UserAPITimeout:     getEnvDuration("USER_API_TIMEOUT", 10*time.Second),
		UserAPIInsecureTLS: getEnvBool("USER_API_INSECURE_TLS", false),
		ResetLinkBaseURL:   getEnv("RESET_LINK_BASE_URL", "http://localhost:5173/reset-password"),

		Verification: Verification{
			TTL:         getEnvDuration("VERIFICATION_TTL", 5*time.Minute),
			MaxAttempts: getEnvInt("VERIFICATION_MAX_ATTEMPTS", 3),
			CodeLength:  getEnvInt("VERIFICATION_CODE_LENGTH", 6),
			Store:       strings.ToLower(getEnv("VERIFICATION_STORE", "memory")),
		},

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL:      getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:        getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoVerifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "email_verifications"),
		S3InvoiceBucket:     getEnv("S3_INVOICE_BUCKET", ""),
		SNSAlertTopicARN:    getEnv("SNS_ALERT_TOPIC_ARN", ""),
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

// getEnvDuration accepts Go duration strings ("5m", "90s").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
