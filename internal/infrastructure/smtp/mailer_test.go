package smtp

import (
	"strings"
	"testing"

	"github.com/go-email-relay/internal/config"
	"github.com/go-email-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Verification(t *testing.T) {
	m := NewMailer(&config.Config{SMTPFrom: "noreply@example.com"})
	raw, err := m.render(domain.EmailMessage{
		To:       "a@b.com",
		Template: domain.TemplateVerification,
		Params: map[string]string{
			"app_name":          "Sistema TCC",
			"user_name":         "Ana",
			"verification_code": "482913",
		},
	})
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "To: a@b.com\r\n")
	assert.Contains(t, s, "Subject: Sistema TCC: your verification code\r\n")
	assert.Contains(t, s, "Hello Ana,")
	assert.Contains(t, s, "482913")
}

func TestRender_Invoice(t *testing.T) {
	m := NewMailer(&config.Config{})
	raw, err := m.render(domain.EmailMessage{
		Template: domain.TemplateInvoice,
		Params:   map[string]string{"invoice_number": "NF-42", "invoice_amount": "150.00"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "invoice NF-42")
	assert.Contains(t, string(raw), "150.00")
}

func TestRender_UnknownTemplate(t *testing.T) {
	m := NewMailer(&config.Config{})
	_, err := m.render(domain.EmailMessage{Template: "newsletter"})
	assert.Error(t, err)
}

func TestRender_SubjectCannotInjectHeaders(t *testing.T) {
	m := NewMailer(&config.Config{SMTPFrom: "noreply@example.com"})
	raw, err := m.render(domain.EmailMessage{
		To:       "a@b.com",
		Template: domain.TemplateInvoice,
		Params: map[string]string{
			"app_name":       "App",
			"invoice_number": "1\r\nBcc: victim@evil.com",
		},
	})
	require.NoError(t, err)

	headers, _, found := strings.Cut(string(raw), "\r\n\r\n")
	require.True(t, found)
	lines := strings.Split(headers, "\r\n")
	require.Len(t, lines, 4, "From, To, Subject, Content-Type only")
	assert.Equal(t, "Subject: App: invoice 1 Bcc: victim@evil.com", lines[2])
	for _, l := range lines {
		assert.False(t, strings.HasPrefix(l, "Bcc:"))
	}
}

func TestRender_NonASCIISubjectIsEncoded(t *testing.T) {
	m := NewMailer(&config.Config{})
	raw, err := m.render(domain.EmailMessage{
		Template: domain.TemplateVerification,
		Params:   map[string]string{"app_name": "Verificação"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: =?UTF-8?q?")
}
