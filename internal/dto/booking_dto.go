package dto

import (
	"time"

	"github.com/google/uuid"
)

type BookingResponse struct {
	Id                 uuid.UUID  `json:"id"`
	BookingReference   string     `json:"booking_reference"`
	Restaurant         string     `json:"restaurant"`
	VisitDate          string     `json:"visit_date"`
	VisitTime          string     `json:"visit_time"`
	PartySize          int        `json:"party_size"`
	SpecialRequests    string     `json:"special_requests,omitempty"`
	Status             string     `json:"status"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	ChatSessionId      *uuid.UUID `json:"chat_session_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type ListBookingsQuery struct {
	Status   string `query:"status" validate:"omitempty,oneof=confirmed cancelled"`
	Upcoming bool   `query:"upcoming"`
}
