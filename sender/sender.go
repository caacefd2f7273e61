package sender

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// TemplateSender delivers a stored transactional template.
type TemplateSender interface {
	SendTemplate(ctx context.Context, to Recipient, templateID int64, params map[string]interface{}) (SendResult, error)
}
