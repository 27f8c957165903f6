package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/repository/specification"
	"restaurant-booking-be/internal/repository/unitofwork"
	"restaurant-booking-be/pkg/booking/dispatch"
	"restaurant-booking-be/pkg/booking/schema"
	"restaurant-booking-be/pkg/events"
	"restaurant-booking-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService records every turn: chat history for the session, and the
// local booking mirror plus a lifecycle event for state-changing outcomes.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	events     events.Publisher
	restaurant string
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher events.Publisher,
	restaurant string,
	log logger.ILogger,
) IConsumerService {
	if eventPublisher == nil {
		eventPublisher = events.NopPublisher{}
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		events:     eventPublisher,
		restaurant: restaurant,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishTurnMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal turn", map[string]interface{}{"error": err.Error()})
		msg.Ack() // malformed messages would never succeed
		return
	}

	if err := cs.record(ctx, payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to record turn", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

func (cs *consumerService) record(ctx context.Context, p dto.PublishTurnMessage) error {
	sessionID, err := uuid.Parse(p.SessionId)
	if err != nil {
		// Sessions started outside the REST API (CLI) have free-form ids and no history table row.
		cs.logger.Debug("CONSUMER", "Skipping history for non-uuid session", map[string]interface{}{"session_id": p.SessionId})
		return cs.mirror(ctx, p, nil)
	}

	var outcome map[string]interface{}
	var reference string
	if p.Outcome != nil {
		outcome = outcomeMap(p.Outcome)
		if p.Outcome.IsSuccess() {
			reference, _ = p.Outcome.Payload["booking_reference"].(string)
		}
	}
	replyAt := p.OccurredAt.Add(time.Millisecond)

	err = unitofwork.InTransaction(ctx, cs.uowFactory, func(uow unitofwork.UnitOfWork) error {
		err := uow.ChatMessageRepository().CreateBulk(ctx, []*entity.ChatMessage{
			{Id: uuid.New(), ChatSessionId: sessionID, Role: store.RoleUser, Chat: p.Chat, Intent: p.Intent, CreatedAt: p.OccurredAt},
			{Id: uuid.New(), ChatSessionId: sessionID, Role: store.RoleAssistant, Chat: p.Reply, Intent: p.Intent, Outcome: outcome, CreatedAt: replyAt},
		})
		if err != nil {
			return fmt.Errorf("save chat messages: %w", err)
		}
		return uow.ChatSessionRepository().RecordTurn(ctx, sessionID, p.Intent, reference, replyAt)
	})
	if err != nil {
		return err
	}
	return cs.mirror(ctx, p, &sessionID)
}

// mirror keeps the local booking table in step with successful
// create/update/cancel outcomes and announces the change.
func (cs *consumerService) mirror(ctx context.Context, p dto.PublishTurnMessage, sessionID *uuid.UUID) error {
	if !p.Outcome.IsSuccess() {
		return nil
	}
	userID, err := uuid.Parse(p.UserId)
	if err != nil {
		return nil
	}

	out := p.Outcome
	ref, _ := out.Payload["booking_reference"].(string)
	if ref == "" {
		return nil
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	repo := uow.BookingRepository()
	change := events.BookingChange{
		UserID:           p.UserId,
		SessionID:        p.SessionId,
		BookingReference: ref,
		Email:            p.Form[schema.FieldEmail],
	}
	var eventType string

	switch dispatch.Operation(out.Operation) {
	case dispatch.OpCreate:
		b := &entity.Booking{
			Id:               uuid.New(),
			UserId:           userID,
			ChatSessionId:    sessionID,
			BookingReference: ref,
			Restaurant:       stringOr(out.Payload["restaurant"], cs.restaurant),
			VisitDate:        stringOr(out.Payload["visit_date"], p.Form[schema.FieldVisitDate]),
			VisitTime:        stringOr(out.Payload["visit_time"], p.Form[schema.FieldVisitTime]),
			PartySize:        intOf(out.Payload["party_size"]),
			SpecialRequests:  stringOr(out.Payload["special_requests"], p.Form[schema.FieldSpecialRequests]),
			Status:           entity.BookingStatusConfirmed,
		}
		if err := repo.Upsert(ctx, b); err != nil {
			return fmt.Errorf("mirror created booking %s: %w", ref, err)
		}
		eventType = events.BookingCreated
		change.VisitDate, change.VisitTime, change.PartySize = b.VisitDate, b.VisitTime, b.PartySize
		change.Status = string(b.Status)

	case dispatch.OpUpdate:
		existing, err := repo.FindOne(ctx, specification.ByBookingReference{Reference: ref})
		if err != nil {
			return err
		}
		if existing == nil {
			existing = &entity.Booking{Id: uuid.New(), UserId: userID, ChatSessionId: sessionID, BookingReference: ref, Restaurant: cs.restaurant, Status: entity.BookingStatusConfirmed}
		}
		updates, _ := out.Payload["updates"].(map[string]interface{})
		applyUpdates(existing, updates, p.Form)
		if err := repo.Upsert(ctx, existing); err != nil {
			return fmt.Errorf("mirror updated booking %s: %w", ref, err)
		}
		eventType = events.BookingUpdated
		change.VisitDate, change.VisitTime, change.PartySize = existing.VisitDate, existing.VisitTime, existing.PartySize
		change.Status = string(existing.Status)

	case dispatch.OpCancel:
		reason := stringOr(out.Payload["cancellation_reason"], "")
		if err := repo.MarkCancelled(ctx, ref, reason); err != nil {
			return fmt.Errorf("mirror cancelled booking %s: %w", ref, err)
		}
		eventType = events.BookingCancelled
		change.Status = string(entity.BookingStatusCancelled)
		change.Reason = reason

	default:
		return nil
	}

	// The mirror is already written; a broker outage must not redeliver the turn.
	if err := cs.events.Publish(ctx, events.NewBookingEvent(eventType, change, p.OccurredAt)); err != nil {
		cs.logger.Warn("CONSUMER", "Failed to publish booking event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
	return nil
}

func applyUpdates(b *entity.Booking, updates map[string]interface{}, form map[string]string) {
	pick := func(apiKey, field string) string {
		if v, ok := updates[apiKey]; ok {
			return fmt.Sprint(v)
		}
		return form[field]
	}
	if v := pick("VisitDate", schema.FieldVisitDate); v != "" {
		b.VisitDate = v
	}
	if v := pick("VisitTime", schema.FieldVisitTime); v != "" {
		b.VisitTime = v
	}
	if v := pick("PartySize", schema.FieldPartySize); v != "" {
		if n := intOf(v); n > 0 {
			b.PartySize = n
		}
	}
	if v := pick("SpecialRequests", schema.FieldSpecialRequests); v != "" {
		b.SpecialRequests = v
	}
}

func outcomeMap(o *store.Outcome) map[string]interface{} {
	raw, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return out
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func intOf(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		var i int
		if _, err := fmt.Sscanf(n, "%d", &i); err == nil {
			return i
		}
	}
	return 0
}
