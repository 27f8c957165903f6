package events

import "time"

const (
	BookingCreated   = "booking.created"
	BookingUpdated   = "booking.updated"
	BookingCancelled = "booking.cancelled"
)

// BookingChange is the payload shared by all booking lifecycle events.
type BookingChange struct {
	UserID           string
	SessionID        string
	BookingReference string
	VisitDate        string
	VisitTime        string
	PartySize        int
	Status           string
	Reason           string
	// Email is the guest contact given in the form, when there was one.
	Email string
}

func NewBookingEvent(eventType string, c BookingChange, at time.Time) BaseEvent {
	data := map[string]interface{}{
		"user_id":           c.UserID,
		"session_id":        c.SessionID,
		"booking_reference": c.BookingReference,
		"status":            c.Status,
		"occurred_at":       at.Format(time.RFC3339),
	}
	if c.VisitDate != "" {
		data["visit_date"] = c.VisitDate
	}
	if c.VisitTime != "" {
		data["visit_time"] = c.VisitTime
	}
	if c.PartySize > 0 {
		data["party_size"] = c.PartySize
	}
	if c.Reason != "" {
		data["reason"] = c.Reason
	}
	if c.Email != "" {
		data["email"] = c.Email
	}
	return BaseEvent{Type: eventType, Data: data, OccurredAt: at}
}
