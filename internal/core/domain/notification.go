package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the delivery state of a settlement notification.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
)

// NotificationDelivery records the delivery of one event to the notification sink.
type NotificationDelivery struct {
	ID         uuid.UUID      `json:"id"`
	EventID    string         `json:"event_id"`
	EventType  EventType      `json:"event_type"`
	TargetURL  string         `json:"target_url"`
	Payload    string         `json:"payload"` // JSON string
	HTTPStatus *int           `json:"http_status"`
	Attempt    int            `json:"attempt"`
	Status     DeliveryStatus `json:"status"`
	LastError  *string        `json:"last_error"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
