package sender

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LogSender writes sends to the log instead of calling an API. It is used
// when no email API key is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendTemplate(_ context.Context, to Recipient, templateID int64, params map[string]interface{}) (SendResult, error) {
	s.logger.Info("Email send skipped (no API configured)",
		zap.String("to", to.Email),
		zap.Int64("template_id", templateID),
		zap.Any("params", params),
	)
	return SendResult{MessageID: fmt.Sprintf("log-%d", time.Now().UnixNano()), SentAt: time.Now()}, nil
}
