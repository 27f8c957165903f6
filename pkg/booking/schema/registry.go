package schema

import "restaurant-booking-be/pkg/store"

// Field names shared by form data, user profiles and interpretation output.
const (
	FieldVisitDate          = "visit_date"
	FieldVisitTime          = "visit_time"
	FieldPartySize          = "party_size"
	FieldTitle              = "title"
	FieldFirstName          = "first_name"
	FieldSurname            = "surname"
	FieldEmail              = "email"
	FieldMobile             = "mobile"
	FieldSpecialRequests    = "special_requests"
	FieldBookingReference   = "booking_reference"
	FieldCancellationReason = "cancellation_reason"
)

type RuleKind string

const (
	RuleDate               RuleKind = "date"
	RuleTime               RuleKind = "time"
	RulePartySize          RuleKind = "party_size"
	RuleEmail              RuleKind = "email"
	RulePhone              RuleKind = "phone"
	RuleTitle              RuleKind = "title"
	RuleName               RuleKind = "name"
	RuleText               RuleKind = "text"
	RuleReference          RuleKind = "reference"
	RuleCancellationReason RuleKind = "cancellation_reason"
)

type Rule struct {
	Kind   RuleKind
	MaxLen int
}

// Field is one slot: its rule and the short description used when asking for it.
type Field struct {
	Name        string
	Description string
	Rule        Rule
}

type Schema struct {
	Intent   store.Intent
	Required []string
	Optional []string
	// RequireChange means at least one optional field must be supplied.
	RequireChange bool
}

var fields = map[string]Field{
	FieldVisitDate:          {Name: FieldVisitDate, Description: "date of the visit (YYYY-MM-DD)", Rule: Rule{Kind: RuleDate}},
	FieldVisitTime:          {Name: FieldVisitTime, Description: "time of the visit (HH:MM)", Rule: Rule{Kind: RuleTime}},
	FieldPartySize:          {Name: FieldPartySize, Description: "number of guests", Rule: Rule{Kind: RulePartySize}},
	FieldTitle:              {Name: FieldTitle, Description: "title (Mr, Mrs, Ms, Dr, Prof, Sir, Lady)", Rule: Rule{Kind: RuleTitle}},
	FieldFirstName:          {Name: FieldFirstName, Description: "first name", Rule: Rule{Kind: RuleName, MaxLen: 50}},
	FieldSurname:            {Name: FieldSurname, Description: "surname", Rule: Rule{Kind: RuleName, MaxLen: 50}},
	FieldEmail:              {Name: FieldEmail, Description: "email address", Rule: Rule{Kind: RuleEmail}},
	FieldMobile:             {Name: FieldMobile, Description: "mobile number", Rule: Rule{Kind: RulePhone}},
	FieldSpecialRequests:    {Name: FieldSpecialRequests, Description: "special requests", Rule: Rule{Kind: RuleText, MaxLen: 500}},
	FieldBookingReference:   {Name: FieldBookingReference, Description: "booking reference", Rule: Rule{Kind: RuleReference}},
	FieldCancellationReason: {Name: FieldCancellationReason, Description: "cancellation reason (1-5)", Rule: Rule{Kind: RuleCancellationReason}},
}

var schemas = map[store.Intent]Schema{
	store.IntentQueryAvailability: {
		Intent:   store.IntentQueryAvailability,
		Required: []string{FieldVisitDate, FieldPartySize},
		Optional: []string{FieldVisitTime},
	},
	store.IntentCreateBooking: {
		Intent:   store.IntentCreateBooking,
		Required: []string{FieldFirstName, FieldSurname, FieldEmail, FieldVisitDate, FieldVisitTime, FieldPartySize},
		Optional: []string{FieldTitle, FieldMobile, FieldSpecialRequests},
	},
	store.IntentGetBooking: {
		Intent:   store.IntentGetBooking,
		Required: []string{FieldBookingReference},
	},
	store.IntentModifyBooking: {
		Intent:        store.IntentModifyBooking,
		Required:      []string{FieldBookingReference},
		Optional:      []string{FieldVisitDate, FieldVisitTime, FieldPartySize, FieldSpecialRequests},
		RequireChange: true,
	},
	store.IntentCancelBooking: {
		Intent:   store.IntentCancelBooking,
		Required: []string{FieldBookingReference, FieldCancellationReason},
	},
}

// CancellationReasons is the booking API's fixed catalogue.
var CancellationReasons = map[int]string{
	1: "Customer Request",
	2: "Restaurant Closure",
	3: "Weather",
	4: "Emergency",
	5: "No Show",
}

// SlotFields are rolled back together when the slot for a new booking is taken.
var SlotFields = []string{FieldVisitDate, FieldVisitTime}

// Lookup returns the schema for an actionable intent.
func Lookup(intent store.Intent) (Schema, bool) {
	s, ok := schemas[intent]
	if !ok {
		return Schema{}, false
	}
	s.Required = append([]string(nil), s.Required...)
	s.Optional = append([]string(nil), s.Optional...)
	return s, true
}

func FieldDef(name string) (Field, bool) {
	f, ok := fields[name]
	return f, ok
}

// Intents lists every actionable intent.
func Intents() []store.Intent {
	return []store.Intent{
		store.IntentQueryAvailability,
		store.IntentCreateBooking,
		store.IntentGetBooking,
		store.IntentModifyBooking,
		store.IntentCancelBooking,
	}
}

// AllFields lists every known field name in a stable order.
func AllFields() []string {
	return []string{
		FieldVisitDate, FieldVisitTime, FieldPartySize,
		FieldTitle, FieldFirstName, FieldSurname, FieldEmail, FieldMobile,
		FieldSpecialRequests, FieldBookingReference, FieldCancellationReason,
	}
}

// Fields returns required followed by optional fields.
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s.Required)+len(s.Optional))
	out = append(out, s.Required...)
	return append(out, s.Optional...)
}

func (s Schema) Declares(field string) bool {
	for _, f := range s.Fields() {
		if f == field {
			return true
		}
	}
	return false
}

// IsSlotField reports whether field is one of the date/time slot fields.
func IsSlotField(field string) bool {
	for _, f := range SlotFields {
		if f == field {
			return true
		}
	}
	return false
}
