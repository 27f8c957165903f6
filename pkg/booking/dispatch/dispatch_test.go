package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/validator"
	"restaurant-booking-be/pkg/restaurant"
	"restaurant-booking-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) SearchAvailability(ctx context.Context, req restaurant.AvailabilityRequest) (*restaurant.AvailabilityResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*restaurant.AvailabilityResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) CreateBooking(ctx context.Context, req restaurant.CreateBookingRequest) (*restaurant.BookingResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*restaurant.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) GetBooking(ctx context.Context, reference string) (*restaurant.BookingResponse, error) {
	args := m.Called(ctx, reference)
	resp, _ := args.Get(0).(*restaurant.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) UpdateBooking(ctx context.Context, reference string, req restaurant.UpdateBookingRequest) (*restaurant.UpdateBookingResponse, error) {
	args := m.Called(ctx, reference, req)
	resp, _ := args.Get(0).(*restaurant.UpdateBookingResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) CancelBooking(ctx context.Context, reference string, reasonID int) (*restaurant.CancelBookingResponse, error) {
	args := m.Called(ctx, reference, reasonID)
	resp, _ := args.Get(0).(*restaurant.CancelBookingResponse)
	return resp, args.Error(1)
}

func newDispatcher(api BookingAPI, maxSearchDays int) *Dispatcher {
	v := validator.New(validator.WithClock(func() time.Time {
		return time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	}))
	return New(api, v, Options{
		Retry:         RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2},
		ToolTimeout:   time.Second,
		MaxSearchDays: maxSearchDays,
	}, logger.NewNopLogger())
}

func day(date string, times ...string) *restaurant.AvailabilityResponse {
	resp := &restaurant.AvailabilityResponse{VisitDate: date}
	for _, t := range times {
		resp.AvailableSlots = append(resp.AvailableSlots, restaurant.Slot{Time: t, Available: true, MaxPartySize: 8})
	}
	return resp
}

var createForm = map[string]string{
	"first_name": "Jane",
	"surname":    "Doe",
	"email":      "jane@example.com",
	"visit_date": "2025-06-12",
	"visit_time": "19:00:00",
	"party_size": "4",
}

func TestRetrySchedule(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, InitialInterval: 100 * time.Millisecond, MaxInterval: 300 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, p.Schedule())

	assert.Empty(t, RetryPolicy{MaxAttempts: 1}.Schedule())
}

func TestDispatch_LocalValidationSkipsNetwork(t *testing.T) {
	api := new(mockAPI)
	d := newDispatcher(api, 1)

	tests := []struct {
		name      string
		intent    store.Intent
		form      map[string]string
		wantField string
	}{
		{"missing required", store.IntentGetBooking, map[string]string{}, "booking_reference"},
		{"invalid party", store.IntentQueryAvailability, map[string]string{"visit_date": "2025-06-12", "party_size": "-1"}, "party_size"},
		{"past date", store.IntentQueryAvailability, map[string]string{"visit_date": "2025-06-01", "party_size": "2"}, "visit_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := d.Dispatch(context.Background(), Request{Intent: tt.intent, Form: tt.form})
			assert.Equal(t, store.OutcomeParameterError, out.Kind)
			assert.Equal(t, tt.wantField, out.Field)
		})
	}
	api.AssertNotCalled(t, "GetBooking", mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "SearchAvailability", mock.Anything, mock.Anything)
}

func TestDispatch_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  string
		wantCode  string
		wantField string
		wantCalls int
	}{
		{"not found", &restaurant.APIError{Category: restaurant.CategoryNotFound, Status: 404}, store.OutcomeNotFound, "", "", 1},
		{"bad parameters", &restaurant.APIError{Category: restaurant.CategoryBadParameters, Field: "booking_reference", Detail: "bad ref"}, store.OutcomeParameterError, store.CodeRejected, "booking_reference", 1},
		{"timeout retried then fails", &restaurant.APIError{Category: restaurant.CategoryTransport, Code: restaurant.CodeTimeout}, store.OutcomeExternalError, store.CodeTimeout, "", 3},
		{"unknown error", context.DeadlineExceeded, store.OutcomeExternalError, store.CodeTimeout, "", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockAPI)
			api.On("GetBooking", mock.Anything, "ABC1234").Return(nil, tt.err)

			out := newDispatcher(api, 1).Dispatch(context.Background(), Request{
				Intent: store.IntentGetBooking,
				Form:   map[string]string{"booking_reference": "ABC1234"},
			})

			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantCode, out.Code)
			assert.Equal(t, tt.wantField, out.Field)
			assert.Equal(t, string(OpRetrieve), out.Operation)
			api.AssertNumberOfCalls(t, "GetBooking", tt.wantCalls)
		})
	}
}

func TestDispatch_RetrySucceedsOnSecondAttempt(t *testing.T) {
	api := new(mockAPI)
	api.On("GetBooking", mock.Anything, "ABC1234").
		Return(nil, &restaurant.APIError{Category: restaurant.CategoryTransport, Code: restaurant.CodeUnavailable}).Once()
	api.On("GetBooking", mock.Anything, "ABC1234").
		Return(&restaurant.BookingResponse{BookingReference: "ABC1234", Status: "confirmed"}, nil).Once()

	out := newDispatcher(api, 1).Dispatch(context.Background(), Request{
		Intent: store.IntentGetBooking,
		Form:   map[string]string{"booking_reference": "ABC1234"},
	})

	require.Equal(t, store.OutcomeSuccess, out.Kind)
	assert.Equal(t, "ABC1234", out.Payload["booking_reference"])
	api.AssertNumberOfCalls(t, "GetBooking", 2)
}

func TestDispatch_CreateIsNeverRetried(t *testing.T) {
	api := new(mockAPI)
	api.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, &restaurant.APIError{Category: restaurant.CategoryTransport, Code: restaurant.CodeTimeout})

	out := newDispatcher(api, 1).Dispatch(context.Background(), Request{Intent: store.IntentCreateBooking, Form: createForm})

	assert.Equal(t, store.OutcomeExternalError, out.Kind)
	assert.Equal(t, store.CodeTimeout, out.Code)
	api.AssertNumberOfCalls(t, "CreateBooking", 1)
}

func TestDispatch_CreatePassesMarketingPreferences(t *testing.T) {
	api := new(mockAPI)
	api.On("CreateBooking", mock.Anything, mock.MatchedBy(func(req restaurant.CreateBookingRequest) bool {
		return req.Customer.ReceiveEmailMarketing != nil && *req.Customer.ReceiveEmailMarketing &&
			req.Customer.ReceiveSmsMarketing == nil && req.PartySize == 4
	})).Return(&restaurant.BookingResponse{BookingReference: "NEW0001", VisitTime: "19:00:00"}, nil)

	out := newDispatcher(api, 1).Dispatch(context.Background(), Request{
		Intent:  store.IntentCreateBooking,
		Form:    createForm,
		Profile: map[string]string{"receive_email_marketing": "true"},
	})

	require.Equal(t, store.OutcomeSuccess, out.Kind)
	assert.Equal(t, "NEW0001", out.Payload["booking_reference"])
}

func TestDispatch_CreateConflictIsSlotUnavailable(t *testing.T) {
	api := new(mockAPI)
	api.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, &restaurant.APIError{Category: restaurant.CategoryConflict, Status: 409, Detail: "taken"})

	out := newDispatcher(api, 1).Dispatch(context.Background(), Request{Intent: store.IntentCreateBooking, Form: createForm})

	assert.Equal(t, store.OutcomeConflict, out.Kind)
	assert.Equal(t, store.ConflictSlotUnavailable, out.ConflictKind)
	assert.Equal(t, "visit_time", out.Field)
}

func TestDispatch_UpdateNeedsAChange(t *testing.T) {
	api := new(mockAPI)

	out := newDispatcher(api, 1).Dispatch(context.Background(), Request{
		Intent: store.IntentModifyBooking,
		Form:   map[string]string{"booking_reference": "ABC1234"},
	})

	assert.Equal(t, store.OutcomeParameterError, out.Kind)
	api.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_CancelSendsReason(t *testing.T) {
	api := new(mockAPI)
	api.On("CancelBooking", mock.Anything, "ABC1234", 2).
		Return(&restaurant.CancelBookingResponse{BookingReference: "ABC1234", Status: "cancelled"}, nil)

	out := newDispatcher(api, 1).Dispatch(context.Background(), Request{
		Intent: store.IntentCancelBooking,
		Form:   map[string]string{"booking_reference": "ABC1234", "cancellation_reason": "2"},
	})

	assert.Equal(t, store.OutcomeSuccess, out.Kind)
	assert.Equal(t, "cancelled", out.Payload["status"])
	api.AssertExpectations(t)
}

type ownedRefs map[string][]string

func (o ownedRefs) OwnsBooking(ctx context.Context, userID, reference string) (bool, error) {
	if userID == "broken" {
		return false, errors.New("db down")
	}
	for _, ref := range o[userID] {
		if ref == reference {
			return true, nil
		}
	}
	return false, nil
}

func TestDispatch_OwnershipGatesUpdateAndCancel(t *testing.T) {
	owners := ownedRefs{"u-1": {"ABC1234"}}
	cancelForm := map[string]string{"booking_reference": "ABC1234", "cancellation_reason": "1"}
	updateForm := map[string]string{"booking_reference": "ABC1234", "party_size": "6"}

	tests := []struct {
		name     string
		intent   store.Intent
		userID   string
		form     map[string]string
		wantKind string
		wantCode string
		calls    int
	}{
		{"owner cancels", store.IntentCancelBooking, "u-1", cancelForm, store.OutcomeSuccess, "", 1},
		{"stranger cancels", store.IntentCancelBooking, "u-2", cancelForm, store.OutcomeNotFound, store.CodeNotOwned, 0},
		{"stranger updates", store.IntentModifyBooking, "u-2", updateForm, store.OutcomeNotFound, store.CodeNotOwned, 0},
		{"lookup fails", store.IntentCancelBooking, "broken", cancelForm, store.OutcomeExternalError, store.CodeUnavailable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockAPI)
			api.On("CancelBooking", mock.Anything, "ABC1234", 1).
				Return(&restaurant.CancelBookingResponse{BookingReference: "ABC1234", Status: "cancelled"}, nil)
			d := newDispatcher(api, 1)
			d.opts.Ownership = owners

			out := d.Dispatch(context.Background(), Request{Intent: tt.intent, UserID: tt.userID, Form: tt.form})

			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantCode, out.Code)
			api.AssertNumberOfCalls(t, "CancelBooking", tt.calls)
			api.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDispatch_AvailabilitySearchesForward(t *testing.T) {
	api := new(mockAPI)
	api.On("SearchAvailability", mock.Anything, restaurant.AvailabilityRequest{VisitDate: "2025-06-12", PartySize: 4}).
		Return(day("2025-06-12"), nil)
	api.On("SearchAvailability", mock.Anything, restaurant.AvailabilityRequest{VisitDate: "2025-06-13", PartySize: 4}).
		Return(day("2025-06-13"), nil)
	api.On("SearchAvailability", mock.Anything, restaurant.AvailabilityRequest{VisitDate: "2025-06-14", PartySize: 4}).
		Return(day("2025-06-14", "18:00:00", "20:00:00"), nil)

	out := newDispatcher(api, 7).Dispatch(context.Background(), Request{
		Intent: store.IntentQueryAvailability,
		Form:   map[string]string{"visit_date": "2025-06-12", "party_size": "4"},
	})

	require.Equal(t, store.OutcomeSuccess, out.Kind)
	assert.Empty(t, out.Payload["available_times"])
	assert.Equal(t, "2025-06-14", out.Payload["next_available_date"])
	assert.Equal(t, []string{"18:00:00", "20:00:00"}, out.Payload["next_available_times"])
	api.AssertNumberOfCalls(t, "SearchAvailability", 3)
}

func TestDispatch_AvailabilityReportsRequestedTime(t *testing.T) {
	api := new(mockAPI)
	api.On("SearchAvailability", mock.Anything, mock.Anything).Return(day("2025-06-12", "18:00:00"), nil)

	out := newDispatcher(api, 7).Dispatch(context.Background(), Request{
		Intent: store.IntentQueryAvailability,
		Form:   map[string]string{"visit_date": "2025-06-12", "party_size": "4", "visit_time": "19:00:00"},
	})

	require.Equal(t, store.OutcomeSuccess, out.Kind)
	assert.Equal(t, false, out.Payload["requested_time_available"])
	assert.Equal(t, []string{"18:00:00"}, out.Payload["available_times"])
	api.AssertNumberOfCalls(t, "SearchAvailability", 1)
}

func TestPrecheck(t *testing.T) {
	tests := []struct {
		name     string
		open     []string
		wantKind string
		wantAlts []string
	}{
		{"slot open", []string{"18:00:00", "19:00:00"}, store.OutcomeSuccess, nil},
		{"slot taken", []string{"18:00:00", "20:30:00"}, store.OutcomeConflict, []string{"18:00:00", "20:30:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockAPI)
			api.On("SearchAvailability", mock.Anything, mock.Anything).Return(day("2025-06-12", tt.open...), nil)

			out := newDispatcher(api, 1).Precheck(context.Background(), createForm)

			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantAlts, out.Alternatives)
			if tt.wantKind == store.OutcomeConflict {
				assert.Equal(t, store.ConflictSlotUnavailable, out.ConflictKind)
				assert.Equal(t, "visit_time", out.Field)
			}
		})
	}
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "2025-06-12|19:00:00|4", SlotKey(createForm))
}
