package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/starshippsychics/trust-engine/internal/config"
	"github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/interfaces"
)

// smsVerifyClient talks to a managed verification API: the provider
// generates, delivers and checks SMS codes itself, so the service never sees
// or stores a code for this channel.
type smsVerifyClient struct {
	httpClient *http.Client
	baseURL    string
	accountID  string
	authToken  string
}

// NewSMSVerifyClient creates a client for the managed SMS verification API.
func NewSMSVerifyClient(cfg config.SMSVerifyConfig) interfaces.SMSVerifier {
	return &smsVerifyClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		accountID: cfg.AccountID,
		authToken: cfg.AuthToken,
	}
}

func (c *smsVerifyClient) StartVerification(ctx context.Context, phoneNumber string) error {
	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("Channel", "sms")

	endpoint := fmt.Sprintf("%s/v2/Services/%s/Verifications", c.baseURL, c.accountID)
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: verification provider returned status %d: %s", errors.ErrDeliveryFailed, resp.StatusCode, string(body))
	}
	return nil
}

func (c *smsVerifyClient) CheckVerification(ctx context.Context, phoneNumber, code string) (bool, error) {
	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("Code", code)

	endpoint := fmt.Sprintf("%s/v2/Services/%s/VerificationCheck", c.baseURL, c.accountID)
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	// 404 means no pending verification exists for the number: a definitive
	// rejection, not a transport failure.
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("verification provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode verification check response: %w", err)
	}
	return result.Status == "approved", nil
}

func (c *smsVerifyClient) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: verification provider unreachable: %v", errors.ErrDeliveryFailed, err)
	}
	return resp, nil
}

var _ interfaces.SMSVerifier = (*smsVerifyClient)(nil)
