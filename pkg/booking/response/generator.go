package response

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"restaurant-booking-be/pkg/booking/schema"
	"restaurant-booking-be/pkg/store"
)

// Notices are turn results that carry neither a question nor an outcome.
const (
	NoticeClarify      = "clarify"
	NoticeReset        = "reset"
	NoticeRetryDropped = "retry_dropped"
	NoticeBusy         = "busy"
)

// Input is the structured turn result handed to a Generator. Exactly one of
// Question, Outcome and Notice is set.
type Input struct {
	Intent     store.Intent
	Question   *store.Question
	Outcome    *store.Outcome
	Notice     string
	Clarifying string
	History    []store.Turn
}

// Generator phrases a turn result for the user. It must always return text.
type Generator interface {
	Generate(ctx context.Context, in Input) string
}

// TemplateGenerator renders fixed English sentences. It needs no model and is
// the fallback for every other generator.
type TemplateGenerator struct {
	restaurant string
}

func NewTemplateGenerator(restaurant string) *TemplateGenerator {
	return &TemplateGenerator{restaurant: restaurant}
}

var _ Generator = &TemplateGenerator{}

func (g *TemplateGenerator) Generate(ctx context.Context, in Input) string {
	switch {
	case in.Question != nil:
		return question(in.Question)
	case in.Outcome != nil:
		return outcome(in.Outcome)
	}

	switch in.Notice {
	case NoticeReset:
		return "No problem, let's start over. What would you like to do?"
	case NoticeRetryDropped:
		return "Okay, I won't try that again. Let me know if there is anything else I can do."
	case NoticeBusy:
		return "I'm still working on your previous message, please try again in a moment."
	}

	if in.Clarifying != "" {
		return in.Clarifying
	}
	name := g.restaurant
	if name == "" {
		name = "the restaurant"
	}
	return fmt.Sprintf("I can check availability, make, view, change or cancel a booking at %s. What would you like to do?", name)
}

func question(q *store.Question) string {
	switch q.Kind {
	case store.QuestionCorrection:
		if q.Reason == "slot unavailable" {
			return "Sorry, that time is no longer available. What time would you like instead?"
		}
		return fmt.Sprintf("The %s %s. Could you give it again?", label(q.Field), q.Reason)
	case store.QuestionChooseChange:
		labels := make([]string, 0, len(q.Fields))
		for _, f := range q.Fields {
			labels = append(labels, label(f))
		}
		return "What would you like to change: " + strings.Join(labels, ", ") + "?"
	case store.QuestionConfirmRetry:
		return "I couldn't confirm whether that went through. Shall I try again?"
	}

	if q.Field == schema.FieldCancellationReason {
		return "Why are you cancelling? " + reasonMenu()
	}
	return fmt.Sprintf("Could you tell me the %s?", label(q.Field))
}

func outcome(out *store.Outcome) string {
	switch out.Kind {
	case store.OutcomeSuccess:
		return success(out)
	case store.OutcomeNotFound:
		if out.Code == store.CodeNotOwned {
			return "I couldn't find a booking with that reference on your account."
		}
		return "I couldn't find a booking with that reference."
	case store.OutcomeConflict:
		if out.ConflictKind == store.ConflictBookingState {
			return "That booking can't be changed in its current state."
		}
		return "That slot is not available."
	case store.OutcomeParameterError:
		if out.Reason != "" {
			return "The booking system rejected the request: " + out.Reason + "."
		}
		return "The booking system rejected the request."
	}

	switch out.Code {
	case store.CodeTimeout:
		return "The booking system took too long to answer. Please try again later."
	case store.CodeRejected:
		return "I couldn't complete that request."
	}
	return "The booking system is unavailable right now. Please try again later."
}

func success(out *store.Outcome) string {
	p := out.Payload
	switch out.Operation {
	case "search_availability":
		times := stringList(p["available_times"])
		if len(times) > 0 {
			return fmt.Sprintf("On %v for %v we have: %s.", p["visit_date"], p["party_size"], strings.Join(shortTimes(times), ", "))
		}
		if next, ok := p["next_available_date"]; ok {
			return fmt.Sprintf("Nothing is free on %v. The next available day is %v: %s.",
				p["visit_date"], next, strings.Join(shortTimes(stringList(p["next_available_times"])), ", "))
		}
		return fmt.Sprintf("Sorry, nothing is available on %v for %v.", p["visit_date"], p["party_size"])
	case "create":
		return fmt.Sprintf("You're booked for %v at %v, party of %v. Your reference is %v.",
			p["visit_date"], shortTime(fmt.Sprint(p["visit_time"])), p["party_size"], p["booking_reference"])
	case "retrieve":
		return fmt.Sprintf("Booking %v: %v at %v for %v (%v).",
			p["booking_reference"], p["visit_date"], shortTime(fmt.Sprint(p["visit_time"])), p["party_size"], p["status"])
	case "update":
		return fmt.Sprintf("Booking %v has been updated.", p["booking_reference"])
	case "cancel":
		return fmt.Sprintf("Booking %v has been cancelled.", p["booking_reference"])
	}
	return "Done."
}

func label(field string) string {
	if def, ok := schema.FieldDef(field); ok {
		return def.Description
	}
	return strings.ReplaceAll(field, "_", " ")
}

func reasonMenu() string {
	ids := make([]int, 0, len(schema.CancellationReasons))
	for id := range schema.CancellationReasons {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d) %s", id, schema.CancellationReasons[id]))
	}
	return strings.Join(parts, ", ")
}

// stringList accepts both []string and the []interface{} a JSON round trip leaves.
func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

func shortTimes(times []string) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = shortTime(t)
	}
	return out
}

func shortTime(t string) string {
	if len(t) == 8 && strings.HasSuffix(t, ":00") {
		return t[:5]
	}
	return t
}
