package smtp

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/go-email-relay/internal/config"
	"github.com/go-email-relay/internal/domain"
)

// Mailer renders templated emails as plain text and delivers them over SMTP.
// Intended for local development against a catch-all server such as Mailpit.
type Mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

type textTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[domain.TemplateKind]textTemplate{
	domain.TemplateVerification: {
		subject: template.Must(template.New("s").Parse(`{{.app_name}}: your verification code`)),
		body: template.Must(template.New("b").Parse(`Hello {{.user_name}},

Your verification code is {{.verification_code}}.
It expires in a few minutes.
`)),
	},
	domain.TemplatePasswordReset: {
		subject: template.Must(template.New("s").Parse(`{{.app_name}}: password reset`)),
		body: template.Must(template.New("b").Parse(`Hello {{.user_name}},

Use the link below to reset your password:
{{.reset_link}}
`)),
	},
	domain.TemplateInvoice: {
		subject: template.Must(template.New("s").Parse(`{{.app_name}}: invoice {{.invoice_number}}`)),
		body: template.Must(template.New("b").Parse(`Hello {{.user_name}},

Invoice:     {{.invoice_number}}
Amount:      {{.invoice_amount}}
Date:        {{.invoice_date}}
Description: {{.service_description}}
`)),
	},
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *Mailer) Name() string { return "smtp" }

func (m *Mailer) Send(_ context.Context, msg domain.EmailMessage) error {
	raw, err := m.render(msg)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{msg.To}, raw)
}

func (m *Mailer) render(msg domain.EmailMessage) ([]byte, error) {
	tpl, ok := templates[msg.Template]
	if !ok {
		return nil, fmt.Errorf("smtp: unknown template %q", msg.Template)
	}
	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, msg.Params); err != nil {
		return nil, fmt.Errorf("smtp: render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, msg.Params); err != nil {
		return nil, fmt.Errorf("smtp: render body: %w", err)
	}
	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.from, headerValue(msg.To), encodeSubject(subject.String()), body.String())
	return []byte(raw), nil
}

// headerLineBreaks flattens CR and LF so client-supplied values cannot start
// a new header line.
var headerLineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func headerValue(v string) string {
	return strings.TrimSpace(headerLineBreaks.Replace(v))
}

// encodeSubject returns a single-line subject, RFC 2047 encoded when it
// contains non-ASCII text.
func encodeSubject(s string) string {
	return mime.QEncoding.Encode("UTF-8", headerValue(s))
}
