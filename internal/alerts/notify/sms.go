package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SMSSender delivers a message to a single phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

type smsPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SMSGateway posts messages to an HTTP SMS gateway.
type SMSGateway struct {
	url    string
	apiKey string
	client *http.Client
}

// SMSOption configures the gateway.
type SMSOption func(*SMSGateway)

// WithSMSHTTPClient overrides the HTTP client.
func WithSMSHTTPClient(client *http.Client) SMSOption {
	return func(g *SMSGateway) {
		if client != nil {
			g.client = client
		}
	}
}

// NewSMSGateway constructs an SMS gateway client.
func NewSMSGateway(url, apiKey string, opts ...SMSOption) (*SMSGateway, error) {
	if url == "" {
		return nil, errors.New("sms gateway: empty url")
	}
	gateway := &SMSGateway{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(gateway)
	}
	return gateway, nil
}

// SendSMS posts one message to the gateway.
func (g *SMSGateway) SendSMS(ctx context.Context, phone, message string) error {
	if g == nil || g.url == "" {
		return errors.New("sms gateway: empty url")
	}
	if phone == "" {
		return errors.New("sms gateway: empty phone")
	}
	body, err := json.Marshal(smsPayload{To: phone, Message: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("X-API-Key", g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway: non-2xx response %d", resp.StatusCode)
	}
	return nil
}
