package intent

import (
	"context"
	"time"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/interpret"
	"restaurant-booking-be/pkg/booking/schema"
	"restaurant-booking-be/pkg/store"
)

// Routing is the router's answer plus whatever the same interpretation pass
// extracted, so the first turn does not need a second model call.
type Routing struct {
	Intent         store.Intent
	Interpretation *interpret.Result
}

// Router maps raw input to one intent of the closed set.
type Router struct {
	interpreter *interpret.Guard
	logger      logger.ILogger
	now         func() time.Time
}

func NewRouter(interpreter *interpret.Guard, log logger.ILogger, now func() time.Time) *Router {
	if now == nil {
		now = time.Now
	}
	return &Router{interpreter: interpreter, logger: log, now: now}
}

// Route never fails: an unreachable interpreter or an out-of-set answer both
// come back as IntentUnknown.
func (r *Router) Route(ctx context.Context, rawInput string, history []store.Turn) Routing {
	res := r.interpreter.Interpret(ctx, interpret.Request{
		Input:   rawInput,
		History: history,
		Intents: schema.Intents(),
		Today:   r.now(),
	})

	routed := store.ParseIntent(string(res.Intent))
	r.logger.Info("ROUTER", "[INTENT] Routed message", map[string]interface{}{
		"intent":    routed,
		"extracted": len(res.Fields),
	})

	return Routing{Intent: routed, Interpretation: res}
}
