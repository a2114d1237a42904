package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3001", cfg.AppPort)
	assert.Equal(t, "emailjs", cfg.EmailProvider)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Verification.TTL)
	assert.Equal(t, 3, cfg.Verification.MaxAttempts)
	assert.Equal(t, 6, cfg.Verification.CodeLength)
	assert.Equal(t, "memory", cfg.Verification.Store)
	assert.Equal(t, "https://localhost:7155/api", cfg.UserAPIURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("EMAIL_PROVIDER", "SendGrid")
	t.Setenv("VERIFICATION_TTL", "90s")
	t.Setenv("VERIFICATION_MAX_ATTEMPTS", "5")
	t.Setenv("VERIFICATION_STORE", "Redis")
	t.Setenv("USER_API_URL", "http://users.local/api/")
	t.Setenv("USER_API_INSECURE_TLS", "true")
	t.Setenv("EMAILJS_REQUESTS_PER_SECOND", "2.5")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "sendgrid", cfg.EmailProvider)
	assert.Equal(t, 90*time.Second, cfg.Verification.TTL)
	assert.Equal(t, 5, cfg.Verification.MaxAttempts)
	assert.Equal(t, "redis", cfg.Verification.Store)
	assert.Equal(t, "http://users.local/api", cfg.UserAPIURL)
	assert.True(t, cfg.UserAPIInsecureTLS)
	assert.Equal(t, 2.5, cfg.EmailJS.RequestsPerSecond)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("VERIFICATION_TTL", "five minutes")
	t.Setenv("VERIFICATION_CODE_LENGTH", "six")
	t.Setenv("USER_API_INSECURE_TLS", "maybe")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Verification.TTL)
	assert.Equal(t, 6, cfg.Verification.CodeLength)
	assert.False(t, cfg.UserAPIInsecureTLS)
}
