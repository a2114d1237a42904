package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-email-relay/internal/application/verification"
	"github.com/go-email-relay/internal/domain"
	"github.com/go-email-relay/internal/pkg/id"
	"github.com/go-email-relay/internal/pkg/resettoken"
)

const (
	defaultUserName     = "User"
	defaultCustomerName = "Customer"
	defaultDescription  = "Services rendered"
	alertTimeout        = 5 * time.Second
)

// Sender delivers a templated email through a transactional email provider.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// UserDirectory answers whether an account exists for an email address.
type UserDirectory interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// InvoiceArchive keeps a copy of sent invoices.
type InvoiceArchive interface {
	Archive(ctx context.Context, deliveryID, recipient string, inv domain.Invoice, sentAt time.Time) (string, error)
}

// AlertPublisher notifies operators about failed deliveries.
type AlertPublisher interface {
	Publish(ctx context.Context, subject, message string) error
}

// Recorder receives delivery and lookup timings for metrics.
type Recorder interface {
	ObserveDelivery(provider, template string, err error, start time.Time)
	ObserveUserLookup(start time.Time)
}

type Service interface {
	// SendVerification issues a code for email and mails it. The code stays
	// valid even if delivery fails.
	SendVerification(ctx context.Context, email, userName string) error
	// SendPasswordReset mails a reset link when the user backend knows email.
	SendPasswordReset(ctx context.Context, email string) error
	SendInvoice(ctx context.Context, email string, inv domain.Invoice) error
	// SendSimple relays a caller-supplied code through the verification template
	// without touching the verification store.
	SendSimple(ctx context.Context, email, userName, code string) error
}

// ServiceDeps holds the dependencies required to build a Service.
// Archive, Alerts and Metrics are optional.
type ServiceDeps struct {
	Verifications    verification.Service
	Sender           Sender
	Users            UserDirectory
	Archive          InvoiceArchive
	Alerts           AlertPublisher
	Metrics          Recorder
	AppName          string
	ResetLinkBaseURL string
	Now              func() time.Time
}

type service struct {
	verifications    verification.Service
	sender           Sender
	users            UserDirectory
	archive          InvoiceArchive
	alerts           AlertPublisher
	metrics          Recorder
	appName          string
	resetLinkBaseURL string
	now              func() time.Time
}

func NewService(d ServiceDeps) Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		verifications:    d.Verifications,
		sender:           d.Sender,
		users:            d.Users,
		archive:          d.Archive,
		alerts:           d.Alerts,
		metrics:          d.Metrics,
		appName:          d.AppName,
		resetLinkBaseURL: d.ResetLinkBaseURL,
		now:              now,
	}
}

func (s *service) SendVerification(ctx context.Context, email, userName string) error {
	code, err := s.verifications.Issue(ctx, email)
	if err != nil {
		return err
	}
	_, err = s.deliver(ctx, domain.EmailMessage{
		To:       email,
		ToName:   orDefault(userName, defaultUserName),
		Template: domain.TemplateVerification,
		Params: map[string]string{
			"user_name":         orDefault(userName, defaultUserName),
			"user_email":        email,
			"verification_code": code,
			"app_name":          s.appName,
		},
	})
	return err
}

func (s *service) SendPasswordReset(ctx context.Context, email string) error {
	start := time.Now()
	exists, err := s.users.EmailExists(ctx, email)
	if s.metrics != nil {
		s.metrics.ObserveUserLookup(start)
	}
	if err != nil {
		slog.ErrorContext(ctx, "user lookup failed", "email", email, "err", err)
		return fmt.Errorf("verify email with user backend: %w", err)
	}
	if !exists {
		return fmt.Errorf("email %q: %w", email, domain.ErrNotFound)
	}

	token := resettoken.Encode(email, s.now())
	_, err = s.deliver(ctx, domain.EmailMessage{
		To:       email,
		ToName:   defaultUserName,
		Template: domain.TemplatePasswordReset,
		Params: map[string]string{
			"user_name":  defaultUserName,
			"user_email": email,
			"reset_link": resettoken.Link(s.resetLinkBaseURL, token, email),
			"app_name":   s.appName,
		},
	})
	return err
}

func (s *service) SendInvoice(ctx context.Context, email string, inv domain.Invoice) error {
	customer := orDefault(inv.CustomerName, defaultCustomerName)
	deliveryID, err := s.deliver(ctx, domain.EmailMessage{
		To:       email,
		ToName:   customer,
		Template: domain.TemplateInvoice,
		Params: map[string]string{
			"user_name":           customer,
			"user_email":          email,
			"invoice_number":      string(inv.Number),
			"invoice_amount":      string(inv.Amount),
			"invoice_date":        inv.Date,
			"service_description": orDefault(inv.Description, defaultDescription),
			"app_name":            s.appName,
		},
	})
	if err != nil {
		return err
	}
	if s.archive != nil {
		loc, err := s.archive.Archive(ctx, deliveryID, email, inv, s.now())
		if err != nil {
			slog.WarnContext(ctx, "failed to archive invoice", "delivery_id", deliveryID, "invoice", inv.Number, "err", err)
		} else {
			slog.InfoContext(ctx, "invoice archived", "delivery_id", deliveryID, "location", loc)
		}
	}
	return nil
}

func (s *service) SendSimple(ctx context.Context, email, userName, code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("code required: %w", domain.ErrBadRequest)
	}
	_, err := s.deliver(ctx, domain.EmailMessage{
		To:       email,
		ToName:   orDefault(userName, defaultUserName),
		Template: domain.TemplateVerification,
		Params: map[string]string{
			"user_name":         orDefault(userName, defaultUserName),
			"user_email":        email,
			"verification_code": code,
			"app_name":          s.appName,
		},
	})
	return err
}

// deliver assigns a delivery id, sends msg and returns the id.
func (s *service) deliver(ctx context.Context, msg domain.EmailMessage) (string, error) {
	msg.ID = id.New()
	start := time.Now()
	err := s.sender.Send(ctx, msg)
	if s.metrics != nil {
		s.metrics.ObserveDelivery(s.sender.Name(), string(msg.Template), err, start)
	}
	if err != nil {
		slog.ErrorContext(ctx, "email delivery failed",
			"delivery_id", msg.ID, "provider", s.sender.Name(), "template", msg.Template, "to", msg.To, "err", err)
		s.alert(ctx, msg, err)
		return msg.ID, fmt.Errorf("send %s email: %w: %w", msg.Template, domain.ErrDeliveryFailed, err)
	}
	slog.InfoContext(ctx, "email sent",
		"delivery_id", msg.ID, "provider", s.sender.Name(), "template", msg.Template, "to", msg.To)
	return msg.ID, nil
}

func (s *service) alert(ctx context.Context, msg domain.EmailMessage, cause error) {
	if s.alerts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()
	subject := fmt.Sprintf("%s: %s email delivery failed", s.appName, msg.Template)
	body := fmt.Sprintf("delivery_id=%s provider=%s to=%s error=%v", msg.ID, s.sender.Name(), msg.To, cause)
	if err := s.alerts.Publish(ctx, subject, body); err != nil {
		slog.Warn("failed to publish delivery alert", "delivery_id", msg.ID, "err", err)
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
