package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultEndpoint is the provider's mail-send endpoint.
const DefaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

const defaultRequestTimeout = 10 * time.Second

// APIConfig configures an APISender.
type APIConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Endpoint  string
	Timeout   time.Duration
}

// APISender delivers through the provider's HTTP API with a bearer key.
type APISender struct {
	config APIConfig
	client *http.Client
}

// NewAPISender validates cfg and returns an APISender.
func NewAPISender(cfg APIConfig) (*APISender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api sender requires an api key")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("api sender requires a from address")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	return &APISender{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type apiAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type apiPayload struct {
	Personalizations []struct {
		To []apiAddress `json:"to"`
	} `json:"personalizations"`
	From    apiAddress `json:"from"`
	Subject string     `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

// Deliver posts the message to the provider. Any non-2xx response is a
// delivery failure.
func (s *APISender) Deliver(ctx context.Context, recipient, subject, htmlBody string) (Result, error) {
	payload := apiPayload{
		From:    apiAddress{Email: s.config.FromEmail, Name: s.config.FromName},
		Subject: subject,
	}
	payload.Personalizations = make([]struct {
		To []apiAddress `json:"to"`
	}, 1)
	payload.Personalizations[0].To = []apiAddress{{Email: recipient}}
	payload.Content = append(payload.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{Type: "text/html", Value: htmlBody})

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Success: false, Message: "payload encoding failed"}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Message: "request construction failed"}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{Success: false, Message: "delivery transport failed"}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("delivery rejected with status %d", resp.StatusCode)
		return Result{Success: false, Message: msg}, fmt.Errorf("email: %s", msg)
	}
	return Result{Success: true, Message: "email accepted for delivery"}, nil
}
