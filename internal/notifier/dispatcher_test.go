package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tourguard-backend/internal/models"
)

type fakeDeliveryStore struct {
	created   []*models.Notification
	sent      map[string]time.Time
	failed    map[string]string
	createErr error
}

func newFakeDeliveryStore() *fakeDeliveryStore {
	return &fakeDeliveryStore{
		sent:   make(map[string]time.Time),
		failed: make(map[string]string),
	}
}

func (s *fakeDeliveryStore) Create(ctx context.Context, n *models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, n)
	return nil
}

func (s *fakeDeliveryStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	s.sent[id] = sentAt
	return nil
}

func (s *fakeDeliveryStore) MarkFailed(ctx context.Context, id, reason string) error {
	s.failed[id] = reason
	return nil
}

type fakeSender struct {
	err   error
	calls int
	phone string
	text  string
}

func (s *fakeSender) Send(ctx context.Context, phone, message string) error {
	s.calls++
	s.phone = phone
	s.text = message
	return s.err
}

func overdueTour() *models.Tour {
	checkin := time.Date(2025, 1, 1, 7, 0, 0, 0, time.UTC)
	return &models.Tour{
		ID:              "tour-a",
		Name:            "Watzmann Überschreitung",
		StartTime:       checkin,
		ExpectedEndTime: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:          models.StatusOverdue,
		CheckedIn:       true,
		CheckinTime:     &checkin,
		EmergencyContact: models.EmergencyContact{
			Name:  "Maria Huber",
			Phone: "+49 170 1234567",
		},
		Participants: []models.Participant{
			{ID: "p1", Name: "Hans"},
			{ID: "p2", Name: "Sepp"},
		},
	}
}

func newTestDispatcher(store DeliveryStore, sender SMSSender, now time.Time) *Dispatcher {
	d := NewDispatcher(store, sender, "https://tourguard.app/emergency", zap.NewNop())
	d.now = func() time.Time { return now }
	return d
}

func TestSendOverdueAlert_Success(t *testing.T) {
	store := newFakeDeliveryStore()
	sender := &fakeSender{}
	now := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	d := newTestDispatcher(store, sender, now)

	err := d.SendOverdueAlert(context.Background(), overdueTour())

	require.NoError(t, err)
	require.Len(t, store.created, 1)

	n := store.created[0]
	assert.Equal(t, "tour-a", n.TourID)
	assert.Equal(t, "+49 170 1234567", n.RecipientPhone)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Contains(t, store.sent, n.ID)
	assert.Empty(t, store.failed)

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "+49 170 1234567", sender.phone)
}

func TestSendOverdueAlert_MessageContent(t *testing.T) {
	store := newFakeDeliveryStore()
	sender := &fakeSender{}
	// 2.5 hours past the expected end.
	now := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	d := newTestDispatcher(store, sender, now)

	require.NoError(t, d.SendOverdueAlert(context.Background(), overdueTour()))

	msg := sender.text
	assert.Contains(t, msg, `Tour "Watzmann Überschreitung" ist 2.5 Stunden überfällig.`)
	assert.Contains(t, msg, "Geplantes Ende: 01.01.2025, 10:00")
	assert.Contains(t, msg, "Check-in ✅ | Check-out ❌")
	assert.Contains(t, msg, "Teilnehmer: Hans, Sepp")
	assert.Contains(t, msg, "https://tourguard.app/emergency/tour-a")
	assert.Contains(t, msg, "Bei Notfall: 112 anrufen!")
}

func TestSendOverdueAlert_TransportFailure(t *testing.T) {
	store := newFakeDeliveryStore()
	sender := &fakeSender{err: errors.New("sms provider returned status 500")}
	d := newTestDispatcher(store, sender, time.Now())

	err := d.SendOverdueAlert(context.Background(), overdueTour())

	require.Error(t, err)
	require.Len(t, store.created, 1)

	// The record exists and reflects the failed attempt.
	n := store.created[0]
	assert.Equal(t, "sms provider returned status 500", store.failed[n.ID])
	assert.Empty(t, store.sent)
}

func TestSendOverdueAlert_InvalidPhone(t *testing.T) {
	store := newFakeDeliveryStore()
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, time.Now())

	tour := overdueTour()
	tour.EmergencyContact.Phone = ""

	err := d.SendOverdueAlert(context.Background(), tour)

	require.Error(t, err)
	assert.Equal(t, 0, sender.calls)

	require.Len(t, store.created, 1)
	assert.Equal(t, "invalid recipient phone", store.failed[store.created[0].ID])
}

func TestSendOverdueAlert_PersistFailure(t *testing.T) {
	store := newFakeDeliveryStore()
	store.createErr = errors.New("store unavailable")
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, time.Now())

	err := d.SendOverdueAlert(context.Background(), overdueTour())

	require.Error(t, err)
	// No delivery without a durable record.
	assert.Equal(t, 0, sender.calls)
}
