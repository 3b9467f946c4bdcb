package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"value-ledger/internal/adapter/storage/memory"
	"value-ledger/internal/core/domain"
	"value-ledger/internal/core/ports"
	"value-ledger/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testNotifyURL = "https://notify.example.com/ledger"

func newTestSink(t *testing.T, repo ports.NotificationRepository, client HTTPClient, url string) ports.NotificationSink {
	t.Helper()
	sink := NewNotificationSink(repo, NewHMACNotificationSigner(), client, url, "notify-secret", nil, newTestLogger())
	sink.(*notificationSink).intervals = []time.Duration{time.Millisecond, time.Millisecond}
	return sink
}

func settlementEvent() *domain.LedgerEvent {
	amount := dec("5000")
	return &domain.LedgerEvent{
		ID:         "evt-1",
		Type:       domain.EventBridgeVerified,
		OrderID:    "order-1",
		AccountIDs: []string{"FLOAT", "alice"},
		Amount:     &amount,
		OccurredAt: time.Now().UTC(),
	}
}

func waitForDelivery(t *testing.T, repo ports.NotificationRepository, status domain.DeliveryStatus) domain.NotificationDelivery {
	t.Helper()
	var found domain.NotificationDelivery
	require.Eventually(t, func() bool {
		deliveries, err := repo.ListByEvent(context.Background(), "evt-1")
		if err != nil || len(deliveries) != 1 {
			return false
		}
		found = deliveries[0]
		return found.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return found
}

func TestNotificationSink_Notify_Delivered(t *testing.T) {
	repo := memory.NewNotificationRepository(memory.NewStore())
	signer := NewHMACNotificationSigner()

	var captured *http.Request
	var body string
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			raw, _ := io.ReadAll(req.Body)
			captured, body = req, string(raw)
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		},
	}

	sink := newTestSink(t, repo, client, testNotifyURL)
	require.NoError(t, sink.Notify(context.Background(), settlementEvent()))

	delivery := waitForDelivery(t, repo, domain.DeliveryStatusDelivered)
	assert.Equal(t, 1, delivery.Attempt)
	require.NotNil(t, delivery.HTTPStatus)
	assert.Equal(t, http.StatusOK, *delivery.HTTPStatus)
	assert.Nil(t, delivery.LastError)

	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, string(domain.EventBridgeVerified), captured.Header.Get(HeaderEventType))
	assert.True(t, strings.Contains(body, `"order_id":"order-1"`))

	ts, err := strconv.ParseInt(captured.Header.Get(HeaderTimestamp), 10, 64)
	require.NoError(t, err)
	signed := &domain.NotificationDelivery{EventID: "evt-1", EventType: domain.EventBridgeVerified, Payload: body}
	assert.True(t, signer.VerifyDelivery("notify-secret", signed, ts, captured.Header.Get(HeaderSignature)))
}

func TestNotificationSink_Notify_RetriesThenFails(t *testing.T) {
	repo := memory.NewNotificationRepository(memory.NewStore())

	var attempts int32
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&attempts, 1)
			return &http.Response{StatusCode: http.StatusBadGateway, Body: http.NoBody}, nil
		},
	}

	sink := newTestSink(t, repo, client, testNotifyURL)
	require.NoError(t, sink.Notify(context.Background(), settlementEvent()))

	delivery := waitForDelivery(t, repo, domain.DeliveryStatusFailed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, 3, delivery.Attempt)
	require.NotNil(t, delivery.LastError)
	assert.Contains(t, *delivery.LastError, "502")
}

func TestNotificationSink_Notify_RecoversOnRetry(t *testing.T) {
	repo := memory.NewNotificationRepository(memory.NewStore())

	var attempts int32
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return nil, errors.New("connection refused")
			}
			return &http.Response{StatusCode: http.StatusAccepted, Body: http.NoBody}, nil
		},
	}

	sink := newTestSink(t, repo, client, testNotifyURL)
	require.NoError(t, sink.Notify(context.Background(), settlementEvent()))

	delivery := waitForDelivery(t, repo, domain.DeliveryStatusDelivered)
	assert.Equal(t, 2, delivery.Attempt)
}

func TestNotificationSink_Notify_NoURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			t.Fatal("no request expected")
			return nil, nil
		},
	}

	sink := newTestSink(t, repo, client, "")
	assert.NoError(t, sink.Notify(context.Background(), settlementEvent()))
}

func TestNotificationSink_Notify_RecordError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			t.Fatal("no request expected")
			return nil, nil
		},
	}

	sink := newTestSink(t, repo, client, testNotifyURL)
	assert.Error(t, sink.Notify(context.Background(), settlementEvent()))
}
