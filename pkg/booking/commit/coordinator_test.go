package commit

import (
	"context"
	"testing"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/dispatch"
	"restaurant-booking-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op   string
	form map[string]string
}

type fakeDispatcher struct {
	precheck store.Outcome
	dispatch store.Outcome
	calls    []call
}

func (f *fakeDispatcher) Precheck(ctx context.Context, form map[string]string) store.Outcome {
	f.calls = append(f.calls, call{"precheck", copyForm(form)})
	out := f.precheck
	if out.IsSuccess() {
		out.Payload = map[string]interface{}{"slot_key": dispatch.SlotKey(form)}
	}
	return out
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req dispatch.Request) store.Outcome {
	op, _ := dispatch.OperationFor(req.Intent)
	f.calls = append(f.calls, call{string(op), copyForm(req.Form)})
	return f.dispatch
}

func copyForm(form map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range form {
		out[k] = v
	}
	return out
}

func createState() *store.ConversationState {
	st := store.NewConversationState("s-1", "u-1")
	st.Intent = store.IntentCreateBooking
	st.RequiredFields = []string{"first_name", "surname", "email", "visit_date", "visit_time", "party_size"}
	st.OptionalFields = []string{"title", "mobile", "special_requests"}
	st.FormData = map[string]string{
		"first_name": "Jane",
		"surname":    "Doe",
		"email":      "jane@example.com",
		"visit_date": "2025-06-12",
		"visit_time": "19:00:00",
		"party_size": "4",
	}
	return st
}

func TestCommit_RequiresPrecheck(t *testing.T) {
	fd := &fakeDispatcher{dispatch: store.Outcome{Kind: store.OutcomeSuccess, Operation: "create"}}
	c := NewCoordinator(fd, logger.NewNopLogger())
	st := createState()

	out := c.Commit(context.Background(), st)
	assert.Equal(t, store.OutcomeExternalError, out.Kind)
	assert.Equal(t, store.CodeRejected, out.Code)
	assert.Empty(t, fd.calls)
}

func TestCommit_TwoPhaseSuccess(t *testing.T) {
	fd := &fakeDispatcher{
		precheck: store.Outcome{Kind: store.OutcomeSuccess, Operation: string(dispatch.OpPrecheck)},
		dispatch: store.Outcome{Kind: store.OutcomeSuccess, Operation: "create"},
	}
	c := NewCoordinator(fd, logger.NewNopLogger())
	st := createState()

	pre := c.Precheck(context.Background(), st)
	require.True(t, pre.IsSuccess())
	out := c.Commit(context.Background(), st)

	assert.True(t, out.IsSuccess())
	require.Len(t, fd.calls, 2)
	assert.Equal(t, "precheck", fd.calls[0].op)
	assert.Equal(t, "create", fd.calls[1].op)
	assert.Equal(t, fd.calls[0].form["visit_time"], fd.calls[1].form["visit_time"])
	assert.Equal(t, Finish, c.Settle(st, out))
}

func TestCommit_NoDoubleSubmit(t *testing.T) {
	fd := &fakeDispatcher{
		precheck: store.Outcome{Kind: store.OutcomeSuccess, Operation: string(dispatch.OpPrecheck)},
		dispatch: store.Outcome{Kind: store.OutcomeSuccess, Operation: "create"},
	}
	c := NewCoordinator(fd, logger.NewNopLogger())
	st := createState()

	c.Precheck(context.Background(), st)
	c.Commit(context.Background(), st)
	c.Precheck(context.Background(), st)
	out := c.Commit(context.Background(), st)

	assert.Equal(t, store.CodeRejected, out.Code)
	creates := 0
	for _, call := range fd.calls {
		if call.op == "create" {
			creates++
		}
	}
	assert.Equal(t, 1, creates)
}

func TestCommit_PrecheckForDifferentSlotIsNotEnough(t *testing.T) {
	fd := &fakeDispatcher{
		precheck: store.Outcome{Kind: store.OutcomeSuccess, Operation: string(dispatch.OpPrecheck)},
		dispatch: store.Outcome{Kind: store.OutcomeSuccess, Operation: "create"},
	}
	c := NewCoordinator(fd, logger.NewNopLogger())
	st := createState()

	c.Precheck(context.Background(), st)
	st.FormData["visit_time"] = "20:00:00"
	out := c.Commit(context.Background(), st)

	assert.Equal(t, store.CodeRejected, out.Code)
	assert.Len(t, fd.calls, 1)
}

func TestSettle_ConflictRollsBackSlotOnly(t *testing.T) {
	c := NewCoordinator(&fakeDispatcher{}, logger.NewNopLogger())
	st := createState()
	st.CommittedSlot = "2025-06-12|19:00:00|4"

	d := c.Settle(st, store.Outcome{
		Kind:         store.OutcomeConflict,
		Operation:    string(dispatch.OpPrecheck),
		ConflictKind: store.ConflictSlotUnavailable,
	})

	assert.Equal(t, Recover, d)
	assert.NotContains(t, st.FormData, "visit_date")
	assert.NotContains(t, st.FormData, "visit_time")
	assert.Equal(t, "Jane", st.FormData["first_name"])
	assert.Equal(t, "Doe", st.FormData["surname"])
	assert.Equal(t, "jane@example.com", st.FormData["email"])
	assert.Equal(t, "4", st.FormData["party_size"])
	assert.Empty(t, st.CommittedSlot)
	require.NotNil(t, st.LastValidationError)
	assert.Equal(t, "visit_time", st.LastValidationError.Field)
}

func TestSettle_UpdateConflictKeepsRequestedDate(t *testing.T) {
	c := NewCoordinator(&fakeDispatcher{}, logger.NewNopLogger())
	st := store.NewConversationState("s-1", "u-1")
	st.Intent = store.IntentModifyBooking
	st.RequiredFields = []string{"booking_reference"}
	st.OptionalFields = []string{"visit_date", "visit_time", "party_size", "special_requests"}
	st.FormData = map[string]string{
		"booking_reference": "ABC1234",
		"visit_date":        "2025-06-13",
		"visit_time":        "19:00:00",
	}

	d := c.Settle(st, store.Outcome{
		Kind:         store.OutcomeConflict,
		Operation:    string(dispatch.OpUpdate),
		ConflictKind: store.ConflictSlotUnavailable,
	})

	assert.Equal(t, Recover, d)
	assert.Equal(t, "2025-06-13", st.FormData["visit_date"])
	assert.NotContains(t, st.FormData, "visit_time")
	assert.Equal(t, "ABC1234", st.FormData["booking_reference"])
	require.NotNil(t, st.LastValidationError)
	assert.Equal(t, "visit_time", st.LastValidationError.Field)
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name      string
		intent    store.Intent
		out       store.Outcome
		want      Disposition
		wantRetry bool
	}{
		{"not found", store.IntentCancelBooking, store.Outcome{Kind: store.OutcomeNotFound, Operation: "cancel"}, Finish, false},
		{"booking state conflict", store.IntentCancelBooking, store.Outcome{Kind: store.OutcomeConflict, Operation: "cancel", ConflictKind: store.ConflictBookingState}, Finish, false},
		{"field error", store.IntentCreateBooking, store.Outcome{Kind: store.OutcomeParameterError, Operation: "create", Field: "email", Reason: "rejected"}, Recover, false},
		{"field error outside schema", store.IntentCreateBooking, store.Outcome{Kind: store.OutcomeParameterError, Operation: "create", Field: "room_number"}, Finish, false},
		{"create timeout", store.IntentCreateBooking, store.Outcome{Kind: store.OutcomeExternalError, Operation: "create", Code: store.CodeTimeout}, Confirm, true},
		{"retrieve timeout", store.IntentGetBooking, store.Outcome{Kind: store.OutcomeExternalError, Operation: "retrieve", Code: store.CodeTimeout}, Finish, false},
		{"create unavailable", store.IntentCreateBooking, store.Outcome{Kind: store.OutcomeExternalError, Operation: "create", Code: store.CodeUnavailable}, Finish, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoordinator(&fakeDispatcher{}, logger.NewNopLogger())
			st := createState()
			st.Intent = tt.intent

			assert.Equal(t, tt.want, c.Settle(st, tt.out))
			assert.Equal(t, tt.wantRetry, st.PendingRetry != nil)
			if tt.want == Recover {
				assert.Equal(t, tt.out.Field, st.LastValidationError.Field)
				assert.NotContains(t, st.FormData, tt.out.Field)
			}
		})
	}
}

func TestCommit_OtherIntentsDispatchOnce(t *testing.T) {
	fd := &fakeDispatcher{dispatch: store.Outcome{Kind: store.OutcomeNotFound, Operation: "cancel"}}
	c := NewCoordinator(fd, logger.NewNopLogger())
	st := store.NewConversationState("s-1", "u-1")
	st.Intent = store.IntentCancelBooking
	st.RequiredFields = []string{"booking_reference", "cancellation_reason"}
	st.FormData = map[string]string{"booking_reference": "NOPE123", "cancellation_reason": "1"}

	out := c.Commit(context.Background(), st)

	assert.Equal(t, store.OutcomeNotFound, out.Kind)
	assert.Len(t, fd.calls, 1)
	assert.Equal(t, &out, st.LastToolOutcome)
}
