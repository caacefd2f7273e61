package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSender posts template sends to a Brevo-style transactional email API.
type HTTPSender struct {
	apiURL     string
	apiKey     string
	from       Recipient
	httpClient *http.Client
}

func NewHTTPSender(apiURL, apiKey, fromEmail, fromName string) (*HTTPSender, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("EMAIL_API_URL not set")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("EMAIL_API_KEY not set")
	}
	return &HTTPSender{
		apiURL:     apiURL,
		apiKey:     apiKey,
		from:       Recipient{Email: fromEmail, Name: fromName},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type templateRequest struct {
	Sender     *Recipient             `json:"sender,omitempty"`
	To         []Recipient            `json:"to"`
	TemplateID int64                  `json:"templateId"`
	Params     map[string]interface{} `json:"params,omitempty"`
}

type templateResponse struct {
	MessageID string `json:"messageId"`
}

func (s *HTTPSender) SendTemplate(ctx context.Context, to Recipient, templateID int64, params map[string]interface{}) (SendResult, error) {
	payload := templateRequest{
		To:         []Recipient{to},
		TemplateID: templateID,
		Params:     params,
	}
	if s.from.Email != "" {
		payload.Sender = &s.from
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("email api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return SendResult{}, fmt.Errorf("email api error %s: %s", resp.Status, string(respBody))
	}

	var parsed templateResponse
	_ = json.Unmarshal(respBody, &parsed)
	if parsed.MessageID == "" {
		parsed.MessageID = fmt.Sprintf("email-%d", time.Now().UnixNano())
	}
	return SendResult{MessageID: parsed.MessageID, SentAt: time.Now()}, nil
}
