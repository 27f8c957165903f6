package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/schema"
	"restaurant-booking-be/pkg/booking/validator"
	"restaurant-booking-be/pkg/restaurant"
	"restaurant-booking-be/pkg/store"

	"github.com/cenkalti/backoff/v5"
)

// Operation is one atomic call against the booking API.
type Operation string

const (
	OpSearchAvailability Operation = "search_availability"
	OpPrecheck           Operation = "precheck"
	OpCreate             Operation = "create"
	OpRetrieve           Operation = "retrieve"
	OpUpdate             Operation = "update"
	OpCancel             Operation = "cancel"
)

// Idempotent operations may be retried after a transport failure.
func (o Operation) Idempotent() bool {
	switch o {
	case OpSearchAvailability, OpPrecheck, OpRetrieve:
		return true
	}
	return false
}

func OperationFor(intent store.Intent) (Operation, bool) {
	switch intent {
	case store.IntentQueryAvailability:
		return OpSearchAvailability, true
	case store.IntentCreateBooking:
		return OpCreate, true
	case store.IntentGetBooking:
		return OpRetrieve, true
	case store.IntentModifyBooking:
		return OpUpdate, true
	case store.IntentCancelBooking:
		return OpCancel, true
	}
	return "", false
}

// BookingAPI is the transport the dispatcher drives.
type BookingAPI interface {
	SearchAvailability(ctx context.Context, req restaurant.AvailabilityRequest) (*restaurant.AvailabilityResponse, error)
	CreateBooking(ctx context.Context, req restaurant.CreateBookingRequest) (*restaurant.BookingResponse, error)
	GetBooking(ctx context.Context, reference string) (*restaurant.BookingResponse, error)
	UpdateBooking(ctx context.Context, reference string, req restaurant.UpdateBookingRequest) (*restaurant.UpdateBookingResponse, error)
	CancelBooking(ctx context.Context, reference string, reasonID int) (*restaurant.CancelBookingResponse, error)
}

// Ownership answers whether a booking reference belongs to a user.
type Ownership interface {
	OwnsBooking(ctx context.Context, userID, reference string) (bool, error)
}

type Options struct {
	Retry         RetryPolicy
	ToolTimeout   time.Duration
	MaxSearchDays int
	// Ownership, when set, gates update and cancel on the user's own bookings.
	Ownership     Ownership
}

// Request is a completed form plus the read-only profile of its owner.
type Request struct {
	Intent  store.Intent
	UserID  string
	Form    map[string]string
	Profile map[string]string
}

// Dispatcher turns completed forms into booking API calls and classifies
// whatever comes back into a store.Outcome. It never returns a raw error.
type Dispatcher struct {
	api       BookingAPI
	validator *validator.Validator
	opts      Options
	logger    logger.ILogger
}

func New(api BookingAPI, v *validator.Validator, opts Options, log logger.ILogger) *Dispatcher {
	if opts.MaxSearchDays < 1 {
		opts.MaxSearchDays = 1
	}
	return &Dispatcher{api: api, validator: v, opts: opts, logger: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request) store.Outcome {
	op, ok := OperationFor(req.Intent)
	if !ok {
		return store.Outcome{Kind: store.OutcomeExternalError, Code: store.CodeRejected, Message: "no operation for intent " + string(req.Intent)}
	}

	if out := d.localCheck(req.Intent, op, req.Form); out != nil {
		return *out
	}
	if op == OpUpdate || op == OpCancel {
		if out := d.checkOwner(ctx, op, req.UserID, req.Form[schema.FieldBookingReference]); out != nil {
			return *out
		}
	}

	d.logger.Info("DISPATCH", "[TOOL] Dispatching", map[string]interface{}{"operation": op})

	var out store.Outcome
	switch op {
	case OpSearchAvailability:
		out = d.searchAvailability(ctx, req.Form)
	case OpCreate:
		out = d.create(ctx, req.Form, req.Profile)
	case OpRetrieve:
		out = d.retrieve(ctx, req.Form)
	case OpUpdate:
		out = d.update(ctx, req.Form)
	case OpCancel:
		out = d.cancel(ctx, req.Form)
	}

	d.logger.Info("DISPATCH", "[TOOL] Outcome", map[string]interface{}{
		"operation": op,
		"kind":      out.Kind,
		"code":      out.Code,
	})
	return out
}

// Precheck asks whether the exact date/time/party slot in form can be booked.
func (d *Dispatcher) Precheck(ctx context.Context, form map[string]string) store.Outcome {
	if out := d.localCheck(store.IntentCreateBooking, OpPrecheck, form); out != nil {
		return *out
	}

	party, _ := strconv.Atoi(form[schema.FieldPartySize])
	resp, err := invoke(ctx, d, OpPrecheck, func(ctx context.Context) (*restaurant.AvailabilityResponse, error) {
		return d.api.SearchAvailability(ctx, restaurant.AvailabilityRequest{
			VisitDate: form[schema.FieldVisitDate],
			PartySize: party,
		})
	})
	if err != nil {
		return classify(OpPrecheck, err)
	}

	open := resp.OpenTimes(party)
	for _, t := range open {
		if t == form[schema.FieldVisitTime] {
			return store.Outcome{
				Kind:      store.OutcomeSuccess,
				Operation: string(OpPrecheck),
				Payload: map[string]interface{}{
					"visit_date": form[schema.FieldVisitDate],
					"visit_time": t,
					"party_size": party,
					"slot_key":   SlotKey(form),
				},
			}
		}
	}

	return store.Outcome{
		Kind:         store.OutcomeConflict,
		Operation:    string(OpPrecheck),
		ConflictKind: store.ConflictSlotUnavailable,
		Field:        schema.FieldVisitTime,
		Reason:       "slot unavailable",
		Alternatives: open,
	}
}

// SlotKey identifies the date/time/party triple a create is issued for.
func SlotKey(form map[string]string) string {
	return form[schema.FieldVisitDate] + "|" + form[schema.FieldVisitTime] + "|" + form[schema.FieldPartySize]
}

// localCheck mirrors the field validator so bad parameters never reach the network.
func (d *Dispatcher) localCheck(intent store.Intent, op Operation, form map[string]string) *store.Outcome {
	sch, ok := schema.Lookup(intent)
	if !ok {
		return &store.Outcome{Kind: store.OutcomeExternalError, Operation: string(op), Code: store.CodeRejected, Message: "unknown intent"}
	}

	required := sch.Required
	if op == OpPrecheck {
		required = []string{schema.FieldVisitDate, schema.FieldVisitTime, schema.FieldPartySize}
	}
	for _, f := range required {
		if _, ok := form[f]; !ok {
			return &store.Outcome{Kind: store.OutcomeParameterError, Operation: string(op), Field: f, Code: validator.CodeRequired, Reason: "is required"}
		}
	}
	if ferr := d.validator.CheckAll(sch.Fields(), form); ferr != nil {
		return &store.Outcome{Kind: store.OutcomeParameterError, Operation: string(op), Field: ferr.Field, Code: ferr.Code, Reason: ferr.Reason}
	}
	return nil
}

// checkOwner refuses references the user has no booking for, without a call to the API.
func (d *Dispatcher) checkOwner(ctx context.Context, op Operation, userID, reference string) *store.Outcome {
	if d.opts.Ownership == nil {
		return nil
	}
	owned, err := d.opts.Ownership.OwnsBooking(ctx, userID, reference)
	if err != nil {
		d.logger.Error("DISPATCH", "Ownership lookup failed", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
		return &store.Outcome{Kind: store.OutcomeExternalError, Operation: string(op), Code: store.CodeUnavailable, Message: err.Error()}
	}
	if !owned {
		d.logger.Warn("DISPATCH", "Booking reference not owned by user", map[string]interface{}{
			"operation": op,
			"user_id":   userID,
		})
		return &store.Outcome{
			Kind:      store.OutcomeNotFound,
			Operation: string(op),
			Code:      store.CodeNotOwned,
			Message:   "no booking with reference " + reference + " for this user",
		}
	}
	return nil
}

func (d *Dispatcher) searchAvailability(ctx context.Context, form map[string]string) store.Outcome {
	party, _ := strconv.Atoi(form[schema.FieldPartySize])
	date := form[schema.FieldVisitDate]

	resp, err := d.searchDay(ctx, date, party)
	if err != nil {
		return classify(OpSearchAvailability, err)
	}

	open := resp.OpenTimes(party)
	payload := map[string]interface{}{
		"visit_date":      date,
		"party_size":      party,
		"available_times": open,
	}

	if requested, ok := form[schema.FieldVisitTime]; ok {
		payload["requested_time"] = requested
		payload["requested_time_available"] = contains(open, requested)
	}

	if len(open) == 0 {
		if next, times := d.nextOpenDay(ctx, date, party); next != "" {
			payload["next_available_date"] = next
			payload["next_available_times"] = times
		}
	}

	return store.Outcome{Kind: store.OutcomeSuccess, Operation: string(OpSearchAvailability), Payload: payload}
}

func (d *Dispatcher) searchDay(ctx context.Context, date string, party int) (*restaurant.AvailabilityResponse, error) {
	return invoke(ctx, d, OpSearchAvailability, func(ctx context.Context) (*restaurant.AvailabilityResponse, error) {
		return d.api.SearchAvailability(ctx, restaurant.AvailabilityRequest{VisitDate: date, PartySize: party})
	})
}

// nextOpenDay walks forward day by day, up to MaxSearchDays from the requested date.
func (d *Dispatcher) nextOpenDay(ctx context.Context, from string, party int) (string, []string) {
	start, err := time.Parse(validator.DateLayout, from)
	if err != nil {
		return "", nil
	}
	for i := 1; i < d.opts.MaxSearchDays; i++ {
		day := start.AddDate(0, 0, i).Format(validator.DateLayout)
		resp, err := d.searchDay(ctx, day, party)
		if err != nil {
			d.logger.Warn("DISPATCH", "Forward availability search stopped", map[string]interface{}{
				"date":  day,
				"error": err.Error(),
			})
			return "", nil
		}
		if open := resp.OpenTimes(party); len(open) > 0 {
			return day, open
		}
	}
	return "", nil
}

func (d *Dispatcher) create(ctx context.Context, form, profile map[string]string) store.Outcome {
	party, _ := strconv.Atoi(form[schema.FieldPartySize])
	req := restaurant.CreateBookingRequest{
		VisitDate:       form[schema.FieldVisitDate],
		VisitTime:       form[schema.FieldVisitTime],
		PartySize:       party,
		SpecialRequests: form[schema.FieldSpecialRequests],
		Customer: restaurant.Customer{
			Title:                   form[schema.FieldTitle],
			FirstName:               form[schema.FieldFirstName],
			Surname:                 form[schema.FieldSurname],
			Email:                   form[schema.FieldEmail],
			Mobile:                  form[schema.FieldMobile],
			ReceiveEmailMarketing:   profileFlag(profile, "receive_email_marketing"),
			ReceiveSmsMarketing:     profileFlag(profile, "receive_sms_marketing"),
			ReceiveRestaurantEmails: profileFlag(profile, "receive_restaurant_email_marketing"),
			ReceiveRestaurantSms:    profileFlag(profile, "receive_restaurant_sms_marketing"),
		},
	}

	resp, err := invoke(ctx, d, OpCreate, func(ctx context.Context) (*restaurant.BookingResponse, error) {
		return d.api.CreateBooking(ctx, req)
	})
	if err != nil {
		return classify(OpCreate, err)
	}
	return success(OpCreate, resp)
}

func (d *Dispatcher) retrieve(ctx context.Context, form map[string]string) store.Outcome {
	ref := form[schema.FieldBookingReference]
	resp, err := invoke(ctx, d, OpRetrieve, func(ctx context.Context) (*restaurant.BookingResponse, error) {
		return d.api.GetBooking(ctx, ref)
	})
	if err != nil {
		return classify(OpRetrieve, err)
	}
	return success(OpRetrieve, resp)
}

func (d *Dispatcher) update(ctx context.Context, form map[string]string) store.Outcome {
	ref := form[schema.FieldBookingReference]
	party, _ := strconv.Atoi(form[schema.FieldPartySize])
	req := restaurant.UpdateBookingRequest{
		VisitDate:       form[schema.FieldVisitDate],
		VisitTime:       form[schema.FieldVisitTime],
		PartySize:       party,
		SpecialRequests: form[schema.FieldSpecialRequests],
	}
	if req.Empty() {
		return store.Outcome{
			Kind:      store.OutcomeParameterError,
			Operation: string(OpUpdate),
			Code:      validator.CodeRequired,
			Reason:    "nothing to change",
		}
	}

	resp, err := invoke(ctx, d, OpUpdate, func(ctx context.Context) (*restaurant.UpdateBookingResponse, error) {
		return d.api.UpdateBooking(ctx, ref, req)
	})
	if err != nil {
		return classify(OpUpdate, err)
	}
	return success(OpUpdate, resp)
}

func (d *Dispatcher) cancel(ctx context.Context, form map[string]string) store.Outcome {
	ref := form[schema.FieldBookingReference]
	reason, _ := strconv.Atoi(form[schema.FieldCancellationReason])

	resp, err := invoke(ctx, d, OpCancel, func(ctx context.Context) (*restaurant.CancelBookingResponse, error) {
		return d.api.CancelBooking(ctx, ref, reason)
	})
	if err != nil {
		return classify(OpCancel, err)
	}
	return success(OpCancel, resp)
}

// invoke runs fn under the per-call timeout. Idempotent operations are retried
// on transport failures following the retry policy; the rest run exactly once.
func invoke[T any](ctx context.Context, d *Dispatcher, op Operation, fn func(context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		callCtx := ctx
		if d.opts.ToolTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, d.opts.ToolTimeout)
			defer cancel()
		}
		return fn(callCtx)
	}

	if !op.Idempotent() {
		return attempt()
	}

	return backoff.Retry(ctx, func() (T, error) {
		res, err := attempt()
		if err != nil && !retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(d.opts.Retry.BackOff()),
		backoff.WithMaxTries(d.opts.Retry.attempts()),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.logger.Warn("DISPATCH", "[TOOL] Retrying after transport failure", map[string]interface{}{
				"operation": op,
				"wait_ms":   wait.Milliseconds(),
				"error":     err.Error(),
			})
		}),
	)
}

func retryable(err error) bool {
	if apiErr, ok := restaurant.AsAPIError(err); ok {
		return apiErr.Category == restaurant.CategoryTransport
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// classify maps a failure onto the outcome taxonomy using only the error's
// category, never its message text.
func classify(op Operation, err error) store.Outcome {
	out := store.Outcome{Operation: string(op), Message: err.Error()}

	apiErr, ok := restaurant.AsAPIError(err)
	if !ok {
		out.Kind = store.OutcomeExternalError
		out.Code = store.CodeUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			out.Code = store.CodeTimeout
		}
		return out
	}

	out.Message = apiErr.Detail
	switch apiErr.Category {
	case restaurant.CategoryBadParameters:
		out.Kind = store.OutcomeParameterError
		out.Field = apiErr.Field
		out.Code = store.CodeRejected
		out.Reason = apiErr.Detail
	case restaurant.CategoryNotFound:
		out.Kind = store.OutcomeNotFound
	case restaurant.CategoryConflict:
		out.Kind = store.OutcomeConflict
		out.ConflictKind = store.ConflictBookingState
		if op == OpCreate || op == OpUpdate || op == OpPrecheck {
			out.ConflictKind = store.ConflictSlotUnavailable
			out.Field = schema.FieldVisitTime
			out.Reason = "slot unavailable"
		}
	default:
		out.Kind = store.OutcomeExternalError
		out.Code = apiErr.Code
		if out.Code == "" {
			out.Code = store.CodeUnavailable
		}
	}
	return out
}

func success(op Operation, v interface{}) store.Outcome {
	return store.Outcome{Kind: store.OutcomeSuccess, Operation: string(op), Payload: toPayload(v)}
}

func toPayload(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func profileFlag(profile map[string]string, key string) *bool {
	raw, ok := profile[key]
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
