package postgres

import (
	"context"
	"errors"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type notificationRepo struct {
	pool Pool
}

// NewNotificationRepository creates a PostgreSQL-backed NotificationRepository.
func NewNotificationRepository(pool Pool) ports.NotificationRepository {
	return &notificationRepo{pool: pool}
}

func (r *notificationRepo) Create(ctx context.Context, d *domain.NotificationDelivery) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notification_deliveries
		(id, event_id, event_type, target_url, payload, http_status, attempt, status, last_error, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		d.ID, d.EventID, string(d.EventType), d.TargetURL,
		d.Payload, d.HTTPStatus, d.Attempt, string(d.Status),
		d.LastError, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *notificationRepo) Update(ctx context.Context, d *domain.NotificationDelivery) error {
	d.UpdatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_deliveries
		 SET http_status=$1, attempt=$2, status=$3, last_error=$4, updated_at=$5
		 WHERE id=$6`,
		d.HTTPStatus, d.Attempt, string(d.Status),
		d.LastError, d.UpdatedAt, d.ID,
	)
	return err
}

func (r *notificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.NotificationDelivery, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, event_id, event_type, target_url, payload,
		http_status, attempt, status, last_error, created_at, updated_at
		 FROM notification_deliveries WHERE id=$1`, id)

	d, err := scanDelivery(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *notificationRepo) ListByEvent(ctx context.Context, eventID string) ([]domain.NotificationDelivery, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, event_type, target_url, payload,
		http_status, attempt, status, last_error, created_at, updated_at
		 FROM notification_deliveries
		 WHERE event_id=$1
		 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []domain.NotificationDelivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, rows.Err()
}

func scanDelivery(row pgx.Row) (*domain.NotificationDelivery, error) {
	var d domain.NotificationDelivery
	var eventType, status string
	if err := row.Scan(
		&d.ID, &d.EventID, &eventType, &d.TargetURL, &d.Payload,
		&d.HTTPStatus, &d.Attempt, &status, &d.LastError,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.EventType = domain.EventType(eventType)
	d.Status = domain.DeliveryStatus(status)
	return &d, nil
}
