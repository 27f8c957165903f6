package dto

import (
	"time"

	"restaurant-booking-be/pkg/store"
)

// PublishTurnMessage is the watermill payload emitted after every persisted turn.
type PublishTurnMessage struct {
	SessionId  string            `json:"session_id"`
	UserId     string            `json:"user_id"`
	Chat       string            `json:"chat"`
	Reply      string            `json:"reply"`
	Intent     string            `json:"intent,omitempty"`
	Outcome    *store.Outcome    `json:"outcome,omitempty"`
	Form       map[string]string `json:"form,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
