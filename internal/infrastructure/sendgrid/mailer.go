package sendgrid

import (
	"context"
	"fmt"

	"github.com/go-email-relay/internal/config"
	"github.com/go-email-relay/internal/domain"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends templated emails as SendGrid dynamic-template messages.
type Mailer struct {
	client    *sg.Client
	from      *mail.Email
	templates map[domain.TemplateKind]string
}

func NewMailer(cfg config.SendGrid) *Mailer {
	return &Mailer{
		client: sg.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		templates: map[domain.TemplateKind]string{
			domain.TemplateVerification:  cfg.Templates.Verification,
			domain.TemplatePasswordReset: cfg.Templates.PasswordReset,
			domain.TemplateInvoice:       cfg.Templates.Invoice,
		},
	}
}

func (m *Mailer) Name() string { return "sendgrid" }

func (m *Mailer) Send(ctx context.Context, msg domain.EmailMessage) error {
	message, err := m.build(msg)
	if err != nil {
		return err
	}
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (m *Mailer) build(msg domain.EmailMessage) (*mail.SGMailV3, error) {
	templateID := m.templates[msg.Template]
	if templateID == "" {
		return nil, fmt.Errorf("sendgrid: no template configured for %q", msg.Template)
	}
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	for k, v := range msg.Params {
		p.SetDynamicTemplateData(k, v)
	}

	message := mail.NewV3Mail()
	message.SetFrom(m.from)
	message.SetTemplateID(templateID)
	message.AddPersonalizations(p)
	if msg.ID != "" {
		message.SetCustomArg("delivery_id", msg.ID)
	}
	return message, nil
}
