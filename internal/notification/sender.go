// Package notification delivers the "report ready" message to requesters
// through the transactional email API.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TemplateData is the per-recipient payload the email template renders.
type TemplateData struct {
	FirstName string `json:"first_name"`
	QueryName string `json:"query_name"`
	Link      string `json:"link"`
}

type Recipient struct {
	EmailAddress string       `json:"email_address"`
	Data         TemplateData `json:"data"`
}

// Sender is the single notification capability the pipeline depends on.
// Template and subject are configuration of the concrete sender, not part
// of the call.
type Sender interface {
	Send(ctx context.Context, recipients []Recipient) error
}

// Config identifies the email API endpoint and the template to render.
type Config struct {
	RootUrl    string
	ApiKey     string
	AppName    string
	From       string
	Subject    string
	TemplateId string
}

// HTTPSender posts send requests to the email service API.
type HTTPSender struct {
	cfg    Config
	client *http.Client
}

var _ Sender = (*HTTPSender)(nil)

func NewHTTPSender(cfg Config) *HTTPSender {
	return &HTTPSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	EmailFrom  string      `json:"email_from"`
	EmailTo    []Recipient `json:"email_to"`
	Subject    string      `json:"subject"`
	TemplateId string      `json:"template_id"`
}

func (s *HTTPSender) Send(ctx context.Context, recipients []Recipient) error {
	payload, err := json.Marshal(sendRequest{
		EmailFrom:  s.cfg.From,
		EmailTo:    recipients,
		Subject:    s.cfg.Subject,
		TemplateId: s.cfg.TemplateId,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.RootUrl+"/email", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Api-key", s.cfg.ApiKey)
	req.Header.Set("App-Name", s.cfg.AppName)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email service returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
