package commit

import (
	"context"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/dispatch"
	"restaurant-booking-be/pkg/booking/schema"
	"restaurant-booking-be/pkg/store"
)

// Dispatcher is the part of dispatch.Dispatcher the coordinator drives.
type Dispatcher interface {
	Precheck(ctx context.Context, form map[string]string) store.Outcome
	Dispatch(ctx context.Context, req dispatch.Request) store.Outcome
}

// Disposition tells the orchestrator where an outcome leads.
type Disposition int

const (
	// Finish ends the episode and reports the outcome.
	Finish Disposition = iota
	// Recover returns to form filling with an error attached to a field.
	Recover
	// Confirm asks the user before reattempting an operation whose result is unknown.
	Confirm
)

func (d Disposition) String() string {
	switch d {
	case Recover:
		return "recover"
	case Confirm:
		return "confirm"
	}
	return "finish"
}

// Coordinator runs the check-then-commit protocol for new bookings and the
// single call for every other operation.
type Coordinator struct {
	dispatcher Dispatcher
	logger     logger.ILogger
}

func NewCoordinator(d Dispatcher, log logger.ILogger) *Coordinator {
	return &Coordinator{dispatcher: d, logger: log}
}

// Precheck confirms the exact slot in the form. The outcome is recorded on
// the state and is what Commit later requires.
func (c *Coordinator) Precheck(ctx context.Context, st *store.ConversationState) store.Outcome {
	out := c.dispatcher.Precheck(ctx, st.FormData)
	st.LastToolOutcome = &out
	return out
}

// Commit issues the operation for a complete form. A create is only sent
// right after a successful precheck of the same slot, and never twice for a
// slot within one episode.
func (c *Coordinator) Commit(ctx context.Context, st *store.ConversationState) store.Outcome {
	if st.Intent == store.IntentCreateBooking {
		key := dispatch.SlotKey(st.FormData)
		if !confirmed(st.LastToolOutcome, key) {
			out := refused("create requires a confirmed availability check")
			st.LastToolOutcome = &out
			return out
		}
		if st.CommittedSlot == key {
			out := refused("booking already submitted for this slot")
			st.LastToolOutcome = &out
			return out
		}
		st.CommittedSlot = key
	}

	out := c.dispatcher.Dispatch(ctx, dispatch.Request{
		Intent:  st.Intent,
		UserID:  st.UserID,
		Form:    st.FormData,
		Profile: st.UserProfile,
	})
	st.LastToolOutcome = &out
	return out
}

// Settle applies an outcome to the state and decides what happens next.
func (c *Coordinator) Settle(st *store.ConversationState, out store.Outcome) Disposition {
	disposition := Finish

	switch out.Kind {
	case store.OutcomeConflict:
		if out.ConflictKind == store.ConflictSlotUnavailable {
			// A new booking gives up the whole slot. A change keeps the
			// requested date so the next attempt still moves to that day.
			rollback := []string{schema.FieldVisitTime}
			if st.Intent == store.IntentCreateBooking {
				rollback = schema.SlotFields
			}
			for _, f := range rollback {
				delete(st.FormData, f)
			}
			st.CommittedSlot = ""
			st.LastValidationError = &store.FieldError{
				Field:  schema.FieldVisitTime,
				Code:   store.ConflictSlotUnavailable,
				Reason: "slot unavailable",
			}
			disposition = Recover
		}
	case store.OutcomeParameterError:
		if out.Field != "" && st.DeclaredField(out.Field) {
			delete(st.FormData, out.Field)
			st.CommittedSlot = ""
			st.LastValidationError = &store.FieldError{Field: out.Field, Code: out.Code, Reason: out.Reason}
			disposition = Recover
		}
	case store.OutcomeExternalError:
		op := dispatch.Operation(out.Operation)
		if out.Code == store.CodeTimeout && !op.Idempotent() {
			st.PendingRetry = &store.PendingRetry{Operation: out.Operation, SlotKey: st.CommittedSlot}
			disposition = Confirm
		}
	}

	c.logger.Info("COMMIT", "Outcome settled", map[string]interface{}{
		"intent":      st.Intent,
		"operation":   out.Operation,
		"kind":        out.Kind,
		"disposition": disposition.String(),
	})
	return disposition
}

func confirmed(last *store.Outcome, key string) bool {
	if !last.IsSuccess() || last.Operation != string(dispatch.OpPrecheck) {
		return false
	}
	got, _ := last.Payload["slot_key"].(string)
	return got == key
}

func refused(message string) store.Outcome {
	return store.Outcome{
		Kind:      store.OutcomeExternalError,
		Operation: string(dispatch.OpCreate),
		Code:      store.CodeRejected,
		Message:   message,
	}
}
