package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketplace-service/config"
	"marketplace-service/sender"
)

// Notification template keys.
const (
	TemplateEmailVerification   = "email_verification"
	TemplateOrderConfirmation   = "order_confirmation"
	TemplateGroupOrderConfirmed = "group_order_confirmed"
	TemplateLoyaltyCoupon       = "loyalty_coupon"
	TemplateApplicationApproved = "application_approved"
	TemplateApplicationRejected = "application_rejected"
)

// Notification is one templated email to one recipient.
type Notification struct {
	Template string                 `json:"template"`
	To       string                 `json:"to"`
	Name     string                 `json:"name,omitempty"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

// Notifier accepts notifications for delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationService delivers notifications synchronously.
type NotificationService interface {
	Notifier
	Deliver(ctx context.Context, n Notification) error
}

// TemplateIDsFromConfig maps template keys to the ids configured for the
// email provider.
func TemplateIDsFromConfig(t config.TemplateIDs) map[string]int64 {
	return map[string]int64{
		TemplateEmailVerification:   t.EmailVerification,
		TemplateOrderConfirmation:   t.OrderConfirmation,
		TemplateGroupOrderConfirmed: t.GroupOrderConfirmed,
		TemplateLoyaltyCoupon:       t.LoyaltyCoupon,
		TemplateApplicationApproved: t.ApplicationApproved,
		TemplateApplicationRejected: t.ApplicationRejected,
	}
}

type notificationService struct {
	sender     sender.TemplateSender
	templates  map[string]int64
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewNotificationService(s sender.TemplateSender, templates map[string]int64, logger *zap.Logger) NotificationService {
	return &notificationService{
		sender:     s,
		templates:  templates,
		retryDelay: time.Second,
		logger:     logger,
	}
}

// WithRetryDelay overrides the linear backoff step between attempts.
func WithRetryDelay(svc NotificationService, d time.Duration) NotificationService {
	if s, ok := svc.(*notificationService); ok {
		s.retryDelay = d
	}
	return svc
}

func (s *notificationService) Notify(ctx context.Context, n Notification) error {
	return s.Deliver(ctx, n)
}

func (s *notificationService) Deliver(ctx context.Context, n Notification) error {
	templateID, ok := s.templates[n.Template]
	if !ok || templateID == 0 {
		return fmt.Errorf("no template configured for %q", n.Template)
	}
	if n.To == "" {
		return fmt.Errorf("missing recipient for %q", n.Template)
	}
	return s.sendWithRetry(ctx, templateID, n)
}

func (s *notificationService) sendWithRetry(ctx context.Context, templateID int64, n Notification) error {
	var lastErr error
	var result sender.SendResult

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.retryDelay):
			}
		}

		result, lastErr = s.sender.SendTemplate(ctx, sender.Recipient{Email: n.To, Name: n.Name}, templateID, n.Params)
		if lastErr == nil {
			break
		}

		s.logger.Warn("send attempt failed",
			zap.String("template", n.Template),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	if lastErr != nil {
		return fmt.Errorf("notification %s failed: %w", n.Template, lastErr)
	}

	s.logger.Info("notification sent",
		zap.String("template", n.Template),
		zap.Int64("template_id", templateID),
		zap.String("message_id", result.MessageID),
	)
	return nil
}

// MessageQueue is the producer side of the notification queue.
type MessageQueue interface {
	SendMessage(ctx context.Context, body string) error
}

type queuedNotifier struct {
	queue    MessageQueue
	fallback NotificationService
	logger   *zap.Logger
}

// NewQueuedNotifier enqueues notifications and falls back to direct delivery
// when the queue rejects the message.
func NewQueuedNotifier(queue MessageQueue, fallback NotificationService, logger *zap.Logger) Notifier {
	return &queuedNotifier{queue: queue, fallback: fallback, logger: logger}
}

func (q *queuedNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := q.queue.SendMessage(ctx, string(body)); err != nil {
		q.logger.Warn("Failed to enqueue notification, delivering directly",
			zap.String("template", n.Template), zap.Error(err))
		return q.fallback.Deliver(ctx, n)
	}
	return nil
}
