package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	Id                 uuid.UUID
	UserId             uuid.UUID
	ChatSessionId      *uuid.UUID
	BookingReference   string
	Restaurant         string
	VisitDate          string
	VisitTime          string
	PartySize          int
	SpecialRequests    string
	Status             BookingStatus
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
