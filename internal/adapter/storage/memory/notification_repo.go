package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"

	"github.com/google/uuid"
)

type notificationRepo struct {
	store *Store
}

// NewNotificationRepository creates a memory-backed NotificationRepository.
func NewNotificationRepository(store *Store) ports.NotificationRepository {
	return &notificationRepo{store: store}
}

func (r *notificationRepo) Create(ctx context.Context, d *domain.NotificationDelivery) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.deliveries[d.ID] = *d
	return nil
}

func (r *notificationRepo) Update(ctx context.Context, d *domain.NotificationDelivery) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.deliveries[d.ID]; !ok {
		return fmt.Errorf("notification delivery not found: %s", d.ID)
	}
	d.UpdatedAt = time.Now().UTC()
	r.store.deliveries[d.ID] = *d
	return nil
}

func (r *notificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.NotificationDelivery, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	d, ok := r.store.deliveries[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *notificationRepo) ListByEvent(ctx context.Context, eventID string) ([]domain.NotificationDelivery, error) {
	r.store.mu.RLock()
	var deliveries []domain.NotificationDelivery
	for _, d := range r.store.deliveries {
		if d.EventID == eventID {
			deliveries = append(deliveries, d)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(deliveries, func(i, j int) bool { return deliveries[i].CreatedAt.After(deliveries[j].CreatedAt) })
	return deliveries, nil
}
