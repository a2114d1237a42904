package users

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-email-relay/internal/config"
	"github.com/go-email-relay/internal/domain"
)

const verifyEmailPath = "/Usuario/VerificarEmail"

// Client queries the user-management backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg *config.Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.UserAPIInsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local dev certificate
	}
	return NewClientWithHTTP(&http.Client{Timeout: cfg.UserAPITimeout, Transport: transport}, cfg.UserAPIURL)
}

func NewClientWithHTTP(httpClient *http.Client, baseURL string) *Client {
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// EmailExists reports whether the backend knows a user with this email.
// Any 2xx answer means yes, any other status means no; transport failures
// are returned wrapped in domain.ErrUpstream.
func (c *Client) EmailExists(ctx context.Context, email string) (bool, error) {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyEmailPath, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build user lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("user lookup: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode/100 == 2, nil
}
