package slotfill

import (
	"context"
	"errors"
	"time"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/interpret"
	"restaurant-booking-be/pkg/booking/schema"
	"restaurant-booking-be/pkg/booking/validator"
	"restaurant-booking-be/pkg/store"
)

var (
	ErrUnknownIntent = errors.New("intent has no slot schema")
	ErrIntentLocked  = errors.New("intent is locked by collected form data")
)

// Result of one Fill pass. Exactly one of Complete and Question holds.
type Result struct {
	Complete bool
	Question *store.Question
}

// Controller converges FormData towards completeness for the active intent.
type Controller struct {
	interpreter *interpret.Guard
	validator   *validator.Validator
	logger      logger.ILogger
	now         func() time.Time
}

func NewController(interpreter *interpret.Guard, v *validator.Validator, log logger.ILogger, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{interpreter: interpreter, validator: v, logger: log, now: now}
}

// Begin sets the episode's intent and declared fields. Switching intent once
// the form holds data is refused; callers must reset the episode first.
func Begin(st *store.ConversationState, intent store.Intent) error {
	sch, ok := schema.Lookup(intent)
	if !ok {
		return ErrUnknownIntent
	}
	if st.EpisodeStarted() && st.Intent != intent {
		return ErrIntentLocked
	}
	st.Intent = intent
	st.RequiredFields = sch.Required
	st.OptionalFields = sch.Optional
	if st.FormData == nil {
		st.FormData = map[string]string{}
	}
	return nil
}

// Understand is the controller's only blocking step: it asks the interpreter
// for values of the active intent's fields, bounded by the guard's timeout.
func (c *Controller) Understand(ctx context.Context, st *store.ConversationState, input string) *interpret.Result {
	sch, _ := schema.Lookup(st.Intent)
	return c.interpreter.Interpret(ctx, interpret.Request{
		Input:        input,
		History:      st.History,
		Fields:       sch.Fields(),
		ActiveIntent: st.Intent,
		Pending:      st.PendingQuestion,
		Today:        c.now(),
	})
}

// ApplyProfile copies profile defaults into missing declared fields and
// returns how many it filled. Present values are never overwritten.
func (c *Controller) ApplyProfile(st *store.ConversationState) int {
	filled := 0
	for {
		progress := 0
		for _, field := range declared(st) {
			if _, ok := st.FormData[field]; ok {
				continue
			}
			raw, ok := st.UserProfile[field]
			if !ok || raw == "" {
				continue
			}
			value, ferr := c.validator.Check(field, raw)
			if ferr != nil {
				c.logger.Debug("SLOTFILL", "Profile default rejected", map[string]interface{}{
					"field":  field,
					"reason": ferr.Reason,
				})
				continue
			}
			st.FormData[field] = value
			progress++
		}
		if progress == 0 {
			return filled
		}
		filled += progress
	}
}

// Fill runs one pass of the slot-filling loop against what was heard this turn.
func (c *Controller) Fill(st *store.ConversationState, heard *interpret.Result) Result {
	if heard == nil {
		heard = interpret.Empty()
	}
	if st.FormData == nil {
		st.FormData = map[string]string{}
	}

	// An unresolved rejection blocks everything else until its field is fixed.
	if ferr := st.LastValidationError; ferr != nil {
		raw, ok := heard.Fields[ferr.Field]
		if !ok {
			return c.ask(st, correction(ferr))
		}
		value, rejected := c.validator.Check(ferr.Field, raw)
		if rejected != nil {
			st.LastValidationError = rejected
			return c.ask(st, correction(rejected))
		}
		st.FormData[ferr.Field] = value
		st.LastValidationError = nil
	}

	c.ApplyProfile(st)

	for _, field := range declared(st) {
		if _, ok := st.FormData[field]; ok {
			continue
		}
		raw, ok := heard.Fields[field]
		if !ok {
			continue
		}
		value, ferr := c.validator.Check(field, raw)
		if ferr != nil {
			st.LastValidationError = ferr
			c.logger.Info("SLOTFILL", "Value rejected", map[string]interface{}{
				"field": field,
				"code":  ferr.Code,
			})
			return c.ask(st, correction(ferr))
		}
		st.FormData[field] = value
	}

	if missing := st.MissingRequired(); len(missing) > 0 {
		return c.ask(st, &store.Question{Kind: store.QuestionMissingField, Field: missing[0]})
	}

	if sch, ok := schema.Lookup(st.Intent); ok && sch.RequireChange && !anyPresent(st.FormData, sch.Optional) {
		return c.ask(st, &store.Question{Kind: store.QuestionChooseChange, Fields: sch.Optional})
	}

	st.PendingQuestion = nil
	c.logger.Info("SLOTFILL", "Form complete", map[string]interface{}{
		"intent": st.Intent,
		"fields": len(st.FormData),
	})
	return Result{Complete: true}
}

func (c *Controller) ask(st *store.ConversationState, q *store.Question) Result {
	st.PendingQuestion = q
	return Result{Question: q}
}

func correction(ferr *store.FieldError) *store.Question {
	return &store.Question{Kind: store.QuestionCorrection, Field: ferr.Field, Reason: ferr.Reason}
}

func declared(st *store.ConversationState) []string {
	out := make([]string, 0, len(st.RequiredFields)+len(st.OptionalFields))
	out = append(out, st.RequiredFields...)
	return append(out, st.OptionalFields...)
}

func anyPresent(form map[string]string, fields []string) bool {
	for _, f := range fields {
		if _, ok := form[f]; ok {
			return true
		}
	}
	return false
}
