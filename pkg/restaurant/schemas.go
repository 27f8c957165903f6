package restaurant

import "fmt"

type AvailabilityRequest struct {
	VisitDate string // YYYY-MM-DD
	PartySize int
}

type Slot struct {
	Time            string `json:"time"` // HH:MM:SS
	Available       bool   `json:"available"`
	MaxPartySize    int    `json:"max_party_size"`
	CurrentBookings int    `json:"current_bookings"`
}

type AvailabilityResponse struct {
	Restaurant     string `json:"restaurant"`
	RestaurantID   int    `json:"restaurant_id"`
	VisitDate      string `json:"visit_date"`
	PartySize      int    `json:"party_size"`
	ChannelCode    string `json:"channel_code"`
	AvailableSlots []Slot `json:"available_slots"`
	TotalSlots     int    `json:"total_slots"`
}

// OpenTimes lists slot times that can seat the party.
func (a *AvailabilityResponse) OpenTimes(partySize int) []string {
	var out []string
	for _, s := range a.AvailableSlots {
		if s.Available && (s.MaxPartySize == 0 || partySize <= s.MaxPartySize) {
			out = append(out, s.Time)
		}
	}
	return out
}

type Customer struct {
	Title                   string
	FirstName               string
	Surname                 string
	Email                   string
	Mobile                  string
	ReceiveEmailMarketing   *bool
	ReceiveSmsMarketing     *bool
	ReceiveRestaurantEmails *bool
	ReceiveRestaurantSms    *bool
}

type CreateBookingRequest struct {
	VisitDate       string
	VisitTime       string // HH:MM:SS
	PartySize       int
	SpecialRequests string
	RoomNumber      string
	Customer        Customer
}

type UpdateBookingRequest struct {
	VisitDate            string
	VisitTime            string
	PartySize            int
	SpecialRequests      string
	IsLeaveTimeConfirmed *bool
}

func (u UpdateBookingRequest) Empty() bool {
	return u.VisitDate == "" && u.VisitTime == "" && u.PartySize == 0 && u.SpecialRequests == "" && u.IsLeaveTimeConfirmed == nil
}

type CustomerInfo struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
}

type BookingResponse struct {
	BookingReference string        `json:"booking_reference"`
	BookingID        int           `json:"booking_id"`
	Restaurant       string        `json:"restaurant"`
	VisitDate        string        `json:"visit_date"`
	VisitTime        string        `json:"visit_time"`
	PartySize        int           `json:"party_size"`
	Status           string        `json:"status"`
	SpecialRequests  string        `json:"special_requests,omitempty"`
	Customer         *CustomerInfo `json:"customer,omitempty"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at,omitempty"`
}

type UpdateBookingResponse struct {
	BookingReference string                 `json:"booking_reference"`
	BookingID        int                    `json:"booking_id"`
	Restaurant       string                 `json:"restaurant"`
	Updates          map[string]interface{} `json:"updates"`
	Status           string                 `json:"status"`
	UpdatedAt        string                 `json:"updated_at"`
	Message          string                 `json:"message"`
}

type CancelBookingResponse struct {
	BookingReference     string `json:"booking_reference"`
	BookingID            int    `json:"booking_id"`
	Restaurant           string `json:"restaurant"`
	CancellationReasonID int    `json:"cancellation_reason_id"`
	CancellationReason   string `json:"cancellation_reason"`
	Status               string `json:"status"`
	CancelledAt          string `json:"cancelled_at"`
	Message              string `json:"message"`
}

// shape checks: a decodable body that misses identifying fields is still unusable.

func (a *AvailabilityResponse) validate() error {
	if a.VisitDate == "" {
		return fmt.Errorf("availability response without visit_date")
	}
	return nil
}

func (b *BookingResponse) validate() error {
	if b.BookingReference == "" {
		return fmt.Errorf("booking response without booking_reference")
	}
	return nil
}

func (u *UpdateBookingResponse) validate() error {
	if u.BookingReference == "" {
		return fmt.Errorf("update response without booking_reference")
	}
	return nil
}

func (c *CancelBookingResponse) validate() error {
	if c.BookingReference == "" {
		return fmt.Errorf("cancel response without booking_reference")
	}
	return nil
}
