package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TemplateAPISender posts messages to an EmailJS-compatible template API: the
// service routes, renders, and addresses the email from the template id and a
// flat parameter map.
type TemplateAPISender struct {
	url       string
	serviceID string
	publicKey string
	http      *http.Client
}

func NewTemplateAPISender(url, serviceID, publicKey string) *TemplateAPISender {
	return &TemplateAPISender{
		url:       strings.TrimSpace(url),
		serviceID: strings.TrimSpace(serviceID),
		publicKey: strings.TrimSpace(publicKey),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *TemplateAPISender) Send(ctx context.Context, msg Message) error {
	if s.url == "" || s.serviceID == "" {
		return errors.New("template api sender not configured")
	}
	body := map[string]any{
		"service_id":      s.serviceID,
		"template_id":     msg.TemplateID,
		"user_id":         s.publicKey,
		"template_params": msg.Payload,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("template api returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender drops messages; used when no notification backend is configured.
type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) Send(_ context.Context, _ Message) error {
	return nil
}
