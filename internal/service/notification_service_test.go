package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant-booking-be/internal/model"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/websocket"
	"restaurant-booking-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotificationRepo) GetNotificationsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]model.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *mockNotificationRepo) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type recordingDelivery struct {
	sent []websocket.Message
	to   []uuid.UUID
}

func (d *recordingDelivery) Send(userID uuid.UUID, msg websocket.Message) {
	d.to = append(d.to, userID)
	d.sent = append(d.sent, msg)
}

func TestNotificationService_HandleEvent(t *testing.T) {
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	user := uuid.New()

	created := events.NewBookingEvent(events.BookingCreated, events.BookingChange{
		UserID:           user.String(),
		BookingReference: "ABC1234",
		VisitDate:        "2025-06-12",
		VisitTime:        "19:00:00",
		PartySize:        4,
		Status:           "confirmed",
	}, at)

	t.Run("stores and pushes a rendered notification", func(t *testing.T) {
		repo := new(mockNotificationRepo)
		delivery := &recordingDelivery{}
		svc := NewNotificationService(repo, nil, delivery, logger.NewNopLogger())

		var saved *model.Notification
		repo.On("CreateNotification", mock.Anything, mock.AnythingOfType("*model.Notification")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*model.Notification) }).
			Return(nil)

		require.NoError(t, svc.HandleEvent(context.Background(), created))

		require.NotNil(t, saved)
		assert.Equal(t, user, saved.UserID)
		assert.Equal(t, "booking.created", saved.TypeCode)
		assert.Equal(t, "ABC1234", saved.BookingReference)
		assert.Equal(t, "Your table for 4 on 2025-06-12 at 19:00:00 is booked. Reference ABC1234.", saved.Message)
		require.Len(t, delivery.sent, 1)
		assert.Equal(t, user, delivery.to[0])
		assert.Equal(t, "notification", delivery.sent[0].Type)
	})

	t.Run("save failure asks for redelivery", func(t *testing.T) {
		repo := new(mockNotificationRepo)
		delivery := &recordingDelivery{}
		svc := NewNotificationService(repo, nil, delivery, logger.NewNopLogger())
		repo.On("CreateNotification", mock.Anything, mock.Anything).Return(errors.New("db down"))

		assert.Error(t, svc.HandleEvent(context.Background(), created))
		assert.Empty(t, delivery.sent)
	})

	t.Run("unknown types and anonymous events are ignored", func(t *testing.T) {
		repo := new(mockNotificationRepo)
		svc := NewNotificationService(repo, nil, nil, logger.NewNopLogger())

		assert.NoError(t, svc.HandleEvent(context.Background(), events.BaseEvent{Type: "booking.viewed"}))
		assert.NoError(t, svc.HandleEvent(context.Background(), events.NewBookingEvent(events.BookingCancelled, events.BookingChange{
			UserID: "cli-user", BookingReference: "ABC1234", Status: "cancelled",
		}, at)))
		repo.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
	})
}

type recordingMailer struct {
	to, subject string
	err         error
}

func (m *recordingMailer) SendBookingNotice(to, subject, message string) error {
	m.to, m.subject = to, subject
	return m.err
}

func TestNotificationService_Mail(t *testing.T) {
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	user := uuid.New()
	ev := events.NewBookingEvent(events.BookingCancelled, events.BookingChange{
		UserID:           user.String(),
		BookingReference: "ABC1234",
		Status:           "cancelled",
		Reason:           "Weather",
		Email:            "ada@example.com",
	}, at)

	tests := []struct {
		name    string
		mailErr error
	}{
		{"mails the guest", nil},
		{"mail failure does not redeliver", errors.New("smtp down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockNotificationRepo)
			repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)
			m := &recordingMailer{err: tt.mailErr}
			svc := NewNotificationService(repo, nil, nil, logger.NewNopLogger())
			svc.UseMailer(m)

			assert.NoError(t, svc.HandleEvent(context.Background(), ev))
			assert.Equal(t, "ada@example.com", m.to)
			assert.Equal(t, "Booking cancelled", m.subject)
		})
	}
}
