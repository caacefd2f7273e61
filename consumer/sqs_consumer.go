package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	awspkg "marketplace-service/pkg/aws"
	"marketplace-service/services"
)

// Poller long-polls a queue and hands each body to a handler.
type Poller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// NotificationConsumer delivers notifications queued by the API process.
type NotificationConsumer struct {
	queue   Poller
	service services.NotificationService
	logger  *zap.Logger
}

func NewNotificationConsumer(queue Poller, service services.NotificationService, logger *zap.Logger) *NotificationConsumer {
	return &NotificationConsumer{queue: queue, service: service, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *NotificationConsumer) Start(ctx context.Context) {
	c.logger.Info("Notification consumer started")
	if err := c.queue.StartPolling(ctx, c.Handle); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Notification consumer stopped", zap.Error(err))
		return
	}
	c.logger.Info("Notification consumer shutting down")
}

// snsEnvelope unwraps messages fanned out from an SNS topic.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// Handle delivers one message. Malformed messages are dropped; delivery
// failures are returned so the queue redelivers them.
func (c *NotificationConsumer) Handle(ctx context.Context, body string) error {
	payload := body
	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Type == "Notification" && envelope.Message != "" {
		payload = envelope.Message
	}

	var n services.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		c.logger.Error("Dropping unparseable notification", zap.Error(err))
		return nil
	}
	if n.Template == "" || n.To == "" {
		c.logger.Error("Dropping incomplete notification", zap.String("template", n.Template))
		return nil
	}

	if err := c.service.Deliver(ctx, n); err != nil {
		c.logger.Error("Failed to deliver notification",
			zap.String("template", n.Template),
			zap.Error(err))
		return err
	}
	return nil
}
