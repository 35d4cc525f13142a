// Package notification implements outbound delivery clients for the email
// API and the managed SMS verification provider.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/starshippsychics/trust-engine/internal/config"
	"github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/interfaces"
)

type emailAPIClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	fromAddress string
}

// NewEmailAPIClient creates a client for the transactional email HTTP API.
func NewEmailAPIClient(cfg config.EmailAPIConfig) interfaces.EmailSender {
	return &emailAPIClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		fromAddress: cfg.FromAddress,
	}
}

type sendEmailRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

func (c *emailAPIClient) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload, err := json.Marshal(sendEmailRequest{
		From:     c.fromAddress,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: email provider unreachable: %v", errors.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: email provider returned status %d: %s", errors.ErrDeliveryFailed, resp.StatusCode, string(body))
	}
	return nil
}

var _ interfaces.EmailSender = (*emailAPIClient)(nil)
