package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lorasense-alarm/internal/evaluator"
	"lorasense-alarm/internal/models"
)

type captureStore struct {
	stored []*models.Notification
	err    error
}

func (s *captureStore) Insert(_ context.Context, n *models.Notification) error {
	s.stored = append(s.stored, n)
	return s.err
}

type stubTenants struct {
	name string
	err  error
}

func (s *stubTenants) TenantName(_ context.Context, _ uuid.UUID) (string, error) {
	return s.name, s.err
}

func testFiring() evaluator.Firing {
	return evaluator.Firing{
		Alarm: models.Alarm{
			ID:      7,
			UserIDs: []uuid.UUID{uuid.New(), uuid.New()},
		},
		Device: models.Device{
			DevEUI: "a84041000181d3f2",
			Name:   "cold-room-1",
		},
		Metric: evaluator.MetricTemperature,
		Value:  9.5,
		At:     time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC),
	}
}

func TestComposerStoresNotification(t *testing.T) {
	store := &captureStore{}
	c := NewComposer(store, &stubTenants{}, zap.NewNop())

	f := testFiring()
	require.NoError(t, c.Notify(context.Background(), f))

	require.Len(t, store.stored, 1)
	n := store.stored[0]
	assert.Equal(t, int64(7), n.SenderID)
	assert.Equal(t, f.Alarm.UserIDs, n.ReceiverIDs)
	assert.Equal(t, "Temperature alarm on cold-room-1: measured 9.5 °C", n.Message)
	assert.Equal(t, alarmCategoryID, n.CategoryID)
	assert.Equal(t, f.At, n.SendTime)
	assert.Equal(t, "a84041000181d3f2", n.DevEUI)
}

func TestComposerQualifiedMessageCarriesTenant(t *testing.T) {
	store := &captureStore{}
	c := NewComposer(store, &stubTenants{name: "Acme Cold Chain"}, zap.NewNop())

	tenantID := uuid.New()
	f := testFiring()
	f.Qualified = true
	f.Device.TenantID = &tenantID

	require.NoError(t, c.Notify(context.Background(), f))
	require.Len(t, store.stored, 1)
	assert.Equal(t, "[Acme Cold Chain] Temperature alarm on cold-room-1: measured 9.5 °C", store.stored[0].Message)
}

func TestComposerTenantLookupFailureStillNotifies(t *testing.T) {
	store := &captureStore{}
	c := NewComposer(store, &stubTenants{err: errors.New("db down")}, zap.NewNop())

	tenantID := uuid.New()
	f := testFiring()
	f.Qualified = true
	f.Device.TenantID = &tenantID

	require.NoError(t, c.Notify(context.Background(), f))
	require.Len(t, store.stored, 1)
	assert.Equal(t, "Temperature alarm on cold-room-1: measured 9.5 °C", store.stored[0].Message)
}

func TestComposerEventMessages(t *testing.T) {
	tests := []struct {
		metric string
		want   string
	}{
		{evaluator.MetricDoor, "Door opened on cold-room-1"},
		{evaluator.MetricWaterLeak, "Water leak detected on cold-room-1"},
		{evaluator.MetricButton, "Emergency button pressed on cold-room-1"},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			store := &captureStore{}
			c := NewComposer(store, &stubTenants{}, zap.NewNop())

			f := testFiring()
			f.Metric = tt.metric
			require.NoError(t, c.Notify(context.Background(), f))
			require.Len(t, store.stored, 1)
			assert.Equal(t, tt.want, store.stored[0].Message)
		})
	}
}

func TestComposerFallsBackToDevEUI(t *testing.T) {
	store := &captureStore{}
	c := NewComposer(store, &stubTenants{}, zap.NewNop())

	f := testFiring()
	f.Device.Name = ""
	require.NoError(t, c.Notify(context.Background(), f))
	require.Len(t, store.stored, 1)
	assert.Contains(t, store.stored[0].Message, "a84041000181d3f2")
}

func TestComposerUnknownMetricNeverEmpty(t *testing.T) {
	store := &captureStore{}
	c := NewComposer(store, &stubTenants{}, zap.NewNop())

	f := testFiring()
	f.Metric = "voltage"
	require.NoError(t, c.Notify(context.Background(), f))
	require.Len(t, store.stored, 1)
	assert.NotEmpty(t, store.stored[0].Message)
	assert.Contains(t, store.stored[0].Message, "voltage")
}

func TestComposerPropagatesStoreError(t *testing.T) {
	c := NewComposer(&captureStore{err: errors.New("insert failed")}, &stubTenants{}, zap.NewNop())
	assert.Error(t, c.Notify(context.Background(), testFiring()))
}
