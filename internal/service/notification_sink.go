package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// notificationRetryIntervals are the waits between delivery attempts.
var notificationRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// Notification request headers.
const (
	HeaderEventType = "X-Ledger-Event"
	HeaderTimestamp = "X-Ledger-Timestamp"
	HeaderSignature = "X-Ledger-Signature"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// notificationSink implements ports.NotificationSink: settlement events are
// POSTed to one configured URL, HMAC signed, with bounded retries. Every
// attempt is recorded as a NotificationDelivery.
type notificationSink struct {
	repo       ports.NotificationRepository
	signer     ports.NotificationSigner
	httpClient HTTPClient
	url        string
	secret     string
	intervals  []time.Duration
	metrics    *metrics.Collector
	log        zerolog.Logger
}

// NewNotificationSink creates a new notification sink. An empty url turns
// Notify into a no-op.
func NewNotificationSink(
	repo ports.NotificationRepository,
	signer ports.NotificationSigner,
	httpClient HTTPClient,
	url string,
	secret string,
	m *metrics.Collector,
	log zerolog.Logger,
) ports.NotificationSink {
	return &notificationSink{
		repo:       repo,
		signer:     signer,
		httpClient: httpClient,
		url:        url,
		secret:     secret,
		intervals:  notificationRetryIntervals,
		metrics:    m,
		log:        log,
	}
}

// Notify records a pending delivery and sends it asynchronously.
func (s *notificationSink) Notify(ctx context.Context, event *domain.LedgerEvent) error {
	if s.url == "" {
		s.log.Debug().Str("event_id", event.ID).Msg("notification: no URL configured, skipping")
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	now := time.Now().UTC()
	delivery := &domain.NotificationDelivery{
		ID:        uuid.New(),
		EventID:   event.ID,
		EventType: event.Type,
		TargetURL: s.url,
		Payload:   string(body),
		Status:    domain.DeliveryStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, delivery); err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("notification: failed to record delivery")
		return err
	}

	go s.deliverWithRetries(delivery)
	return nil
}

// deliverWithRetries attempts delivery, backing off between attempts.
func (s *notificationSink) deliverWithRetries(delivery *domain.NotificationDelivery) {
	ctx := context.Background()
	for attempt := 0; attempt <= len(s.intervals); attempt++ {
		if attempt > 0 {
			time.Sleep(s.intervals[attempt-1])
		}
		delivery.Attempt = attempt + 1

		status, err := s.send(ctx, delivery)
		delivery.HTTPStatus = status
		delivery.UpdatedAt = time.Now().UTC()
		if err == nil {
			delivery.Status = domain.DeliveryStatusDelivered
			delivery.LastError = nil
			s.save(ctx, delivery)
			s.metrics.RecordNotification(true)
			s.log.Info().Str("event_id", delivery.EventID).Int("attempt", delivery.Attempt).Msg("notification: delivered successfully")
			return
		}

		msg := err.Error()
		delivery.LastError = &msg
		s.save(ctx, delivery)
		s.log.Warn().Err(err).Str("event_id", delivery.EventID).Int("attempt", delivery.Attempt).Msg("notification: delivery failed")
	}

	delivery.Status = domain.DeliveryStatusFailed
	delivery.UpdatedAt = time.Now().UTC()
	s.save(ctx, delivery)
	s.metrics.RecordNotification(false)
	s.log.Error().Str("event_id", delivery.EventID).Msg("notification: all retry attempts exhausted")
}

func (s *notificationSink) send(ctx context.Context, delivery *domain.NotificationDelivery) (*int, error) {
	timestamp := time.Now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.TargetURL, bytes.NewReader([]byte(delivery.Payload)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventType, string(delivery.EventType))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderSignature, s.signer.SignDelivery(s.secret, delivery, timestamp))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	if status < 200 || status >= 300 {
		return &status, fmt.Errorf("non-2xx response: %d", status)
	}
	return &status, nil
}

func (s *notificationSink) save(ctx context.Context, delivery *domain.NotificationDelivery) {
	if err := s.repo.Update(ctx, delivery); err != nil {
		s.log.Warn().Err(err).Str("delivery_id", delivery.ID.String()).Msg("notification: failed to update delivery")
	}
}
