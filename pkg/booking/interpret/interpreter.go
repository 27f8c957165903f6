package interpret

import (
	"context"
	"time"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/store"
)

// Request is everything the interpreter may look at for one message.
type Request struct {
	Input   string
	History []store.Turn
	// Intents is non-empty when the caller wants the message routed.
	Intents []store.Intent
	// Fields restricts extraction to these slots.
	Fields       []string
	ActiveIntent store.Intent
	Pending      *store.Question
	Today        time.Time
}

// Result is what the interpreter understood. Every part is optional.
type Result struct {
	Intent             store.Intent      `json:"intent,omitempty"`
	Fields             map[string]string `json:"fields,omitempty"`
	ClarifyingQuestion string            `json:"clarifying_question,omitempty"`
	Confirmation       *bool             `json:"confirmation,omitempty"`
	Reset              bool              `json:"reset,omitempty"`
}

// Interpreter turns free text into intent and slot candidates. It may fail.
type Interpreter interface {
	Interpret(ctx context.Context, req Request) (*Result, error)
}

// Empty is the "nothing understood" result.
func Empty() *Result {
	return &Result{Fields: map[string]string{}}
}

// Guard bounds an Interpreter in time and converts every failure into Empty,
// so callers always get a usable Result.
type Guard struct {
	next    Interpreter
	timeout time.Duration
	logger  logger.ILogger
}

func NewGuard(next Interpreter, timeout time.Duration, log logger.ILogger) *Guard {
	return &Guard{next: next, timeout: timeout, logger: log}
}

func (g *Guard) Interpret(ctx context.Context, req Request) *Result {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type reply struct {
		res *Result
		err error
	}
	done := make(chan reply, 1)
	go func() {
		res, err := g.next.Interpret(ctx, req)
		done <- reply{res, err}
	}()

	select {
	case <-ctx.Done():
		g.logger.Warn("INTERPRET", "Interpretation timed out, nothing extracted", map[string]interface{}{
			"error": ctx.Err().Error(),
		})
		return Empty()
	case r := <-done:
		if r.err != nil || r.res == nil {
			details := map[string]interface{}{}
			if r.err != nil {
				details["error"] = r.err.Error()
			}
			g.logger.Warn("INTERPRET", "Interpretation failed, nothing extracted", details)
			return Empty()
		}
		if r.res.Fields == nil {
			r.res.Fields = map[string]string{}
		}
		return r.res
	}
}
