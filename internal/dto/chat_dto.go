package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title string `json:"title" validate:"omitempty,max=120"`
}

type CreateSessionResponse struct {
	Id    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type GetAllSessionsResponse struct {
	Id                   uuid.UUID  `json:"id"`
	Title                string     `json:"title"`
	LastIntent           string     `json:"last_intent,omitempty"`
	LastBookingReference string     `json:"last_booking_reference,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID              `json:"id"`
	Role      string                 `json:"role"`
	Chat      string                 `json:"chat"`
	Intent    string                 `json:"intent,omitempty"`
	Outcome   map[string]interface{} `json:"outcome,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Chat          string    `json:"chat" validate:"required,max=2000"`
}

// SendChatResponse wraps one orchestrated turn.
type SendChatResponse struct {
	ChatSessionId uuid.UUID         `json:"chat_session_id"`
	Reply         string            `json:"reply"`
	Intent        string            `json:"intent,omitempty"`
	Question      interface{}       `json:"question,omitempty"`
	Outcome       interface{}       `json:"outcome,omitempty"`
	Notice        string            `json:"notice,omitempty"`
	EpisodeDone   bool              `json:"episode_done"`
	Form          map[string]string `json:"form,omitempty"`
	Trace         []string          `json:"trace,omitempty"`
}

type SessionStateResponse struct {
	ChatSessionId  uuid.UUID         `json:"chat_session_id"`
	Intent         string            `json:"intent,omitempty"`
	Phase          string            `json:"phase"`
	RequiredFields []string          `json:"required_fields,omitempty"`
	Form           map[string]string `json:"form,omitempty"`
	Pending        interface{}       `json:"pending_question,omitempty"`
	AwaitingRetry  bool              `json:"awaiting_retry"`
	Episode        int               `json:"episode"`
	Version        int64             `json:"version"`
}

// SocketChatMessage is the inbound websocket frame.
type SocketChatMessage struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	Chat          string    `json:"chat"`
}
