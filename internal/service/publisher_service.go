package service

import (
	"context"
	"encoding/json"

	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/orchestrator"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{topicName: topicName, publisher: publisher}
}

func (ps *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}

// TurnObserver forwards persisted turns to the in-process bus so recording
// never sits on the reply path.
type TurnObserver struct {
	publisher IPublisherService
	logger    logger.ILogger
}

var _ orchestrator.Observer = &TurnObserver{}

func NewTurnObserver(publisher IPublisherService, log logger.ILogger) *TurnObserver {
	return &TurnObserver{publisher: publisher, logger: log}
}

func (o *TurnObserver) TurnCompleted(ctx context.Context, rec orchestrator.TurnRecord) {
	payload, err := json.Marshal(dto.PublishTurnMessage{
		SessionId:  rec.SessionID,
		UserId:     rec.UserID,
		Chat:       rec.Message,
		Reply:      rec.Reply.Text,
		Intent:     string(rec.Reply.Intent),
		Outcome:    rec.Reply.Outcome,
		Form:       rec.Reply.Form,
		OccurredAt: rec.At,
	})
	if err != nil {
		o.logger.Error("TURN_OBSERVER", "Failed to marshal turn", map[string]interface{}{"error": err.Error()})
		return
	}
	// The request context ends with the HTTP call; the bus must not inherit its cancellation.
	if err := o.publisher.Publish(context.WithoutCancel(ctx), payload); err != nil {
		o.logger.Error("TURN_OBSERVER", "Failed to publish turn", map[string]interface{}{
			"session_id": rec.SessionID,
			"error":      err.Error(),
		})
	}
}
