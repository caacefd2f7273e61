package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"marketplace-service/models"
	awspkg "marketplace-service/pkg/aws"
)

// EventPublisher publishes domain events to the configured transport.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DomainEvent) error
	Close() error
}

// NewDomainEvent stamps an event with an id and time.
func NewDomainEvent(eventType, key string, data interface{}) models.DomainEvent {
	return models.DomainEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type snsEventPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSEventPublisher(client awspkg.SNSPublisher, topicArn string) EventPublisher {
	return &snsEventPublisher{client: client, topicArn: topicArn}
}

func (p *snsEventPublisher) Publish(ctx context.Context, event models.DomainEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.topicArn, event.Type, body)
}

func (p *snsEventPublisher) Close() error { return nil }

type noopEventPublisher struct{}

// NewNoopEventPublisher drops every event.
func NewNoopEventPublisher() EventPublisher { return noopEventPublisher{} }

func (noopEventPublisher) Publish(context.Context, models.DomainEvent) error { return nil }
func (noopEventPublisher) Close() error                                     { return nil }
