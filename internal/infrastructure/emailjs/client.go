package emailjs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-email-relay/internal/config"
	"github.com/go-email-relay/internal/domain"
	"golang.org/x/time/rate"
)

const sendPath = "/api/v1.0/email/send"

// Client sends templated emails through the EmailJS REST API.
// Outbound calls are throttled client-side to the account's request quota.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceID  string
	publicKey  string
	privateKey string
	templates  map[domain.TemplateKind]string
	limiter    *rate.Limiter
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func NewClient(cfg config.EmailJS, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		serviceID:  cfg.ServiceID,
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		templates: map[domain.TemplateKind]string{
			domain.TemplateVerification:  cfg.Templates.Verification,
			domain.TemplatePasswordReset: cfg.Templates.PasswordReset,
			domain.TemplateInvoice:       cfg.Templates.Invoice,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) Name() string { return "emailjs" }

func (c *Client) Send(ctx context.Context, msg domain.EmailMessage) error {
	templateID, ok := c.templates[msg.Template]
	if !ok || templateID == "" {
		return fmt.Errorf("emailjs: no template configured for %q", msg.Template)
	}
	body, err := json.Marshal(sendRequest{
		ServiceID:      c.serviceID,
		TemplateID:     templateID,
		UserID:         c.publicKey,
		AccessToken:    c.privateKey,
		TemplateParams: msg.Params,
	})
	if err != nil {
		return fmt.Errorf("emailjs: marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("emailjs: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("emailjs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("emailjs: status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
