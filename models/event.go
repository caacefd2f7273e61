package models

import "time"

// Domain event types.
const (
	EventOrderPaid           = "order.paid"
	EventGroupOrderJoined    = "group_order.joined"
	EventApplicationReviewed = "application.reviewed"
	EventCouponIssued        = "coupon.issued"
)

// DomainEvent is the envelope published to SNS or Kafka.
type DomainEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}
