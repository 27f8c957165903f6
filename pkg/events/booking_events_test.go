package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBookingEvent(t *testing.T) {
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	t.Run("created carries the visit", func(t *testing.T) {
		ev := NewBookingEvent(BookingCreated, BookingChange{
			UserID:           "u-1",
			BookingReference: "ABC1234",
			VisitDate:        "2025-06-12",
			VisitTime:        "19:00:00",
			PartySize:        4,
			Status:           "confirmed",
		}, at)

		assert.Equal(t, "booking.created", ev.EventType())
		assert.Equal(t, at, ev.Timestamp())
		assert.Equal(t, "ABC1234", ev.Payload()["booking_reference"])
		assert.Equal(t, 4, ev.Payload()["party_size"])
		assert.NotContains(t, ev.Payload(), "reason")
	})

	t.Run("cancelled carries the reason only", func(t *testing.T) {
		ev := NewBookingEvent(BookingCancelled, BookingChange{
			UserID:           "u-1",
			BookingReference: "ABC1234",
			Status:           "cancelled",
			Reason:           "Weather",
		}, at)

		assert.Equal(t, "Weather", ev.Payload()["reason"])
		assert.NotContains(t, ev.Payload(), "party_size")
		assert.NotContains(t, ev.Payload(), "visit_date")
	})
}
