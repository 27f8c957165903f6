package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"restaurant-booking-be/internal/model"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/pkg/mailer"
	"restaurant-booking-be/internal/repository/contract"
	"restaurant-booking-be/internal/websocket"
	"restaurant-booking-be/pkg/events"
	pktNats "restaurant-booking-be/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationDelivery pushes real-time updates. Implemented by the websocket hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, msg websocket.Message)
}

// EventSource is the part of the NATS subscriber the service needs.
type EventSource interface {
	Subscribe(subject string, durableName string, handler pktNats.EventHandler) error
}

type notificationTemplate struct {
	title   string
	message string
}

var notificationTemplates = map[string]notificationTemplate{
	events.BookingCreated:   {"Booking confirmed", "Your table for {party_size} on {visit_date} at {visit_time} is booked. Reference {booking_reference}."},
	events.BookingUpdated:   {"Booking updated", "Booking {booking_reference} now reads {visit_date} at {visit_time} for {party_size}."},
	events.BookingCancelled: {"Booking cancelled", "Booking {booking_reference} was cancelled ({reason})."},
}

type NotificationService struct {
	repo       contract.NotificationRepository
	subscriber EventSource
	delivery   NotificationDelivery
	mailer     mailer.IEmailService
	logger     logger.ILogger
	now        func() time.Time
}

func NewNotificationService(repo contract.NotificationRepository, sub EventSource, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
		now:        time.Now,
	}
}

// UseMailer also emails each notification to the guest address carried by
// the event.
func (s *NotificationService) UseMailer(m mailer.IEmailService) {
	s.mailer = m
}

// Start begins listening to booking lifecycle events.
func (s *NotificationService) Start() error {
	if s.subscriber == nil {
		s.logger.Warn("NotificationService", "No event source configured, notifications disabled", nil)
		return nil
	}
	if err := s.subscriber.Subscribe(pktNats.StreamSubject, "booking-notifier", s.HandleEvent); err != nil {
		return fmt.Errorf("start notification subscriber: %w", err)
	}
	s.logger.Info("NotificationService", "Listening to "+pktNats.StreamSubject, nil)
	return nil
}

// HandleEvent stores an inbox entry for the booking owner and pushes it live.
// Returning an error makes the broker redeliver.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	tmpl, ok := notificationTemplates[event.EventType()]
	if !ok {
		s.logger.Debug("NotificationService", "Ignoring event", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	payload := event.Payload()
	uidStr, _ := payload["user_id"].(string)
	userID, err := uuid.Parse(uidStr)
	if err != nil {
		s.logger.Warn("NotificationService", "Event without a valid user_id", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	notif := s.buildNotification(userID, event.EventType(), tmpl, payload)
	if err := s.repo.CreateNotification(ctx, &notif); err != nil {
		s.logger.Error("NotificationService", "Error saving notification", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return err
	}

	if s.delivery != nil {
		s.delivery.Send(userID, websocket.Message{Type: "notification", Data: notif})
	}

	// The inbox entry is already stored, so a mail failure must not redeliver.
	if email, _ := payload["email"].(string); s.mailer != nil && email != "" {
		if err := s.mailer.SendBookingNotice(email, notif.Title, notif.Message); err != nil {
			s.logger.Warn("NotificationService", "Booking email failed", map[string]interface{}{
				"reference": notif.BookingReference,
				"error":     err.Error(),
			})
		}
	}
	return nil
}

func (s *NotificationService) buildNotification(userID uuid.UUID, typeCode string, tmpl notificationTemplate, payload map[string]interface{}) model.Notification {
	msg := tmpl.message
	for k, v := range payload {
		msg = strings.ReplaceAll(msg, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	ref, _ := payload["booking_reference"].(string)
	meta, _ := json.Marshal(payload)

	return model.Notification{
		ID:               uuid.New(),
		UserID:           userID,
		TypeCode:         typeCode,
		BookingReference: ref,
		Title:            tmpl.title,
		Message:          msg,
		Metadata:         datatypes.JSON(meta),
		CreatedAt:        s.now(),
	}
}

// GetNotifications fetches notifications for a user.
func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	return s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
}

// GetUnreadCount fetches unread count.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}
