package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/commit"
	"restaurant-booking-be/pkg/booking/intent"
	"restaurant-booking-be/pkg/booking/interpret"
	"restaurant-booking-be/pkg/booking/response"
	"restaurant-booking-be/pkg/booking/session"
	"restaurant-booking-be/pkg/booking/slotfill"
	"restaurant-booking-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxSteps bounds the transitions of one turn. Every path reaches Responding
// well within it; hitting it means a broken transition.
const maxSteps = 16

// Input is one user message for a session.
type Input struct {
	SessionID string
	UserID    string
	Message   string
	// Profile replaces the session's defaults for this turn when non-nil.
	Profile map[string]string
}

// Reply is the turn result after the response step.
type Reply struct {
	SessionID   string            `json:"session_id"`
	Text        string            `json:"text"`
	Intent      store.Intent      `json:"intent,omitempty"`
	Question    *store.Question   `json:"question,omitempty"`
	Outcome     *store.Outcome    `json:"outcome,omitempty"`
	Notice      string            `json:"notice,omitempty"`
	EpisodeDone bool              `json:"episode_done"`
	Trace       []store.Phase     `json:"trace"`
	Form        map[string]string `json:"form,omitempty"`
}

// TurnRecord is what observers hear after a turn was persisted.
type TurnRecord struct {
	SessionID string
	UserID    string
	Message   string
	Reply     Reply
	At        time.Time
}

// Observer is notified after every persisted turn. It must not block.
type Observer interface {
	TurnCompleted(ctx context.Context, rec TurnRecord)
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithLockWait bounds how long a turn queues behind another turn of the
// same session before failing with session.ErrLockTimeout.
func WithLockWait(d time.Duration) Option {
	return func(o *Orchestrator) { o.lockWait = d }
}

// Orchestrator sequences one turn: lock, load, run the state machine,
// phrase the reply, persist, unlock. It holds no business rules itself.
type Orchestrator struct {
	store       session.Store
	locker      session.Locker
	router      *intent.Router
	filler      *slotfill.Controller
	coordinator *commit.Coordinator
	responder   response.Generator
	observers   []Observer
	lockWait    time.Duration
	logger      logger.ILogger
	tracer      trace.Tracer
	now         func() time.Time
}

func New(
	st session.Store,
	locker session.Locker,
	router *intent.Router,
	filler *slotfill.Controller,
	coordinator *commit.Coordinator,
	responder response.Generator,
	log logger.ILogger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		store:       st,
		locker:      locker,
		router:      router,
		filler:      filler,
		coordinator: coordinator,
		responder:   responder,
		logger:      log,
		tracer:      otel.Tracer("restaurant-booking/orchestrator"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// turn carries the working values of one HandleTurn call.
type turn struct {
	st      *store.ConversationState
	message string
	heard   *interpret.Result
	reply   *Reply
}

// HandleTurn processes one message. Turns of the same session never overlap;
// a turn that outlives its lease is discarded with session.ErrLeaseLost.
func (o *Orchestrator) HandleTurn(ctx context.Context, in Input) (*Reply, error) {
	ctx, span := o.tracer.Start(ctx, "booking.turn", trace.WithAttributes(attribute.String("session.id", in.SessionID)))
	defer span.End()

	lease, err := o.acquire(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	st, err := o.load(ctx, in.SessionID, in.UserID)
	if err != nil {
		return nil, err
	}
	if in.Profile != nil {
		st.UserProfile = make(map[string]string, len(in.Profile))
		for k, v := range in.Profile {
			st.UserProfile[k] = v
		}
	}

	received := o.now()
	t := &turn{st: st, message: in.Message, reply: &Reply{SessionID: in.SessionID}}
	o.run(ctx, t)
	st.AppendTurn(store.RoleUser, in.Message, received)

	if t.reply.Intent == store.IntentUnset {
		t.reply.Intent = st.Intent
	}
	t.reply.Form = copyForm(st.FormData)
	t.reply.Text = o.responder.Generate(ctx, response.Input{
		Intent:     t.reply.Intent,
		Question:   t.reply.Question,
		Outcome:    t.reply.Outcome,
		Notice:     t.reply.Notice,
		Clarifying: clarifying(t.heard),
		History:    st.History,
	})
	st.AppendTurn(store.RoleAssistant, t.reply.Text, o.now())
	st.Phase = store.PhaseAwaitingInput

	// The lease can still be reaped after this check; the versioned save
	// below catches a turn that started in between.
	if !lease.Valid() {
		o.logger.Warn("ORCHESTRATOR", "Lease lost, discarding turn", map[string]interface{}{
			"session_id": in.SessionID,
		})
		return nil, session.ErrLeaseLost
	}

	st.Version++
	st.UpdatedAt = o.now()
	if err := o.save(ctx, st); err != nil {
		return nil, err
	}

	rec := TurnRecord{SessionID: st.SessionID, UserID: st.UserID, Message: in.Message, Reply: *t.reply, At: st.UpdatedAt}
	for _, obs := range o.observers {
		obs.TurnCompleted(ctx, rec)
	}

	o.logger.Info("ORCHESTRATOR", "Turn completed", map[string]interface{}{
		"session_id": in.SessionID,
		"intent":     t.reply.Intent,
		"steps":      len(t.reply.Trace),
	})
	return t.reply, nil
}

// ResetEpisode drops the active intent and form of a session on request.
func (o *Orchestrator) ResetEpisode(ctx context.Context, sessionID, userID string) error {
	lease, err := o.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer lease.Release()

	st, err := o.load(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	st.ResetEpisode()
	st.Phase = store.PhaseAwaitingInput
	if !lease.Valid() {
		return session.ErrLeaseLost
	}
	st.Version++
	st.UpdatedAt = o.now()
	return o.save(ctx, st)
}

func (o *Orchestrator) save(ctx context.Context, st *store.ConversationState) error {
	err := o.store.Save(ctx, st)
	if errors.Is(err, session.ErrStaleVersion) {
		o.logger.Warn("ORCHESTRATOR", "Session saved by another turn, discarding", map[string]interface{}{
			"session_id": st.SessionID,
			"version":    st.Version,
		})
		return session.ErrLeaseLost
	}
	if err != nil {
		return fmt.Errorf("save session %s: %w", st.SessionID, err)
	}
	return nil
}

// State returns a snapshot of the session for its owner.
func (o *Orchestrator) State(ctx context.Context, sessionID, userID string) (*store.ConversationState, error) {
	st, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.UserID != "" && userID != "" && st.UserID != userID {
		return nil, session.ErrNotOwner
	}
	return st, nil
}

func (o *Orchestrator) acquire(ctx context.Context, sessionID string) (session.Lease, error) {
	if o.lockWait <= 0 {
		return o.locker.Acquire(ctx, sessionID)
	}
	waitCtx, cancel := context.WithTimeout(ctx, o.lockWait)
	defer cancel()
	return o.locker.Acquire(waitCtx, sessionID)
}

func (o *Orchestrator) load(ctx context.Context, sessionID, userID string) (*store.ConversationState, error) {
	st, err := o.store.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return store.NewConversationState(sessionID, userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if st.UserID == "" {
		st.UserID = userID
	}
	if userID != "" && st.UserID != userID {
		return nil, session.ErrNotOwner
	}
	return st, nil
}

func (o *Orchestrator) run(ctx context.Context, t *turn) {
	phase := store.PhaseAwaitingInput
	for step := 0; ; step++ {
		t.reply.Trace = append(t.reply.Trace, phase)
		t.st.Phase = phase
		o.logger.Debug("ORCHESTRATOR", "[STATE] "+string(phase), map[string]interface{}{
			"session_id": t.st.SessionID,
			"intent":     t.st.Intent,
		})

		if step >= maxSteps {
			o.logger.Error("ORCHESTRATOR", "Turn did not converge, ending episode", map[string]interface{}{
				"session_id": t.st.SessionID,
			})
			t.reply.Question = nil
			t.reply.Outcome = &store.Outcome{Kind: store.OutcomeExternalError, Code: store.CodeUnavailable, Message: "turn did not converge"}
			t.reply.Intent = t.st.Intent
			t.reply.EpisodeDone = true
			t.st.ResetEpisode()
			return
		}

		switch phase {
		case store.PhaseAwaitingInput:
			phase = o.awaitInput(ctx, t)
		case store.PhaseRouting:
			phase = o.route(ctx, t)
		case store.PhaseFormFilling:
			phase = o.fill(t)
		case store.PhasePrechecking:
			phase = o.precheck(ctx, t)
		case store.PhaseDispatching:
			phase = o.dispatch(ctx, t)
		case store.PhaseRecovering:
			phase = store.PhaseFormFilling
		case store.PhaseResponding:
			return
		}
	}
}

func (o *Orchestrator) awaitInput(ctx context.Context, t *turn) store.Phase {
	if t.st.PendingRetry != nil {
		return o.confirmRetry(ctx, t)
	}
	if !t.st.Intent.Actionable() {
		return store.PhaseRouting
	}

	t.heard = o.filler.Understand(ctx, t.st, t.message)
	if t.heard.Reset {
		t.st.ResetEpisode()
		t.reply.Notice = response.NoticeReset
		return store.PhaseResponding
	}
	return store.PhaseFormFilling
}

func (o *Orchestrator) route(ctx context.Context, t *turn) store.Phase {
	routed := o.router.Route(ctx, t.message, t.st.History)
	t.heard = routed.Interpretation

	if t.heard.Reset {
		t.st.ResetEpisode()
		t.reply.Notice = response.NoticeReset
		return store.PhaseResponding
	}
	if !routed.Intent.Actionable() {
		t.reply.Notice = response.NoticeClarify
		return store.PhaseResponding
	}
	if err := slotfill.Begin(t.st, routed.Intent); err != nil {
		o.logger.Warn("ORCHESTRATOR", "Could not start episode", map[string]interface{}{
			"intent": routed.Intent,
			"error":  err.Error(),
		})
		t.reply.Notice = response.NoticeClarify
		return store.PhaseResponding
	}
	return store.PhaseFormFilling
}

func (o *Orchestrator) fill(t *turn) store.Phase {
	res := o.filler.Fill(t.st, t.heard)
	t.heard = interpret.Empty()

	if !res.Complete {
		t.reply.Question = res.Question
		return store.PhaseResponding
	}
	if t.st.Intent == store.IntentCreateBooking {
		return store.PhasePrechecking
	}
	return store.PhaseDispatching
}

func (o *Orchestrator) precheck(ctx context.Context, t *turn) store.Phase {
	ctx, span := o.tracer.Start(ctx, "booking.precheck")
	defer span.End()

	out := o.coordinator.Precheck(ctx, t.st)
	span.SetAttributes(attribute.String("outcome.kind", out.Kind))
	if out.IsSuccess() {
		return store.PhaseDispatching
	}
	return o.settle(t, out)
}

func (o *Orchestrator) dispatch(ctx context.Context, t *turn) store.Phase {
	ctx, span := o.tracer.Start(ctx, "booking.dispatch", trace.WithAttributes(attribute.String("intent", string(t.st.Intent))))
	defer span.End()

	out := o.coordinator.Commit(ctx, t.st)
	span.SetAttributes(attribute.String("outcome.kind", out.Kind))
	return o.settle(t, out)
}

func (o *Orchestrator) settle(t *turn, out store.Outcome) store.Phase {
	switch o.coordinator.Settle(t.st, out) {
	case commit.Recover:
		return store.PhaseRecovering
	case commit.Confirm:
		t.st.PendingQuestion = &store.Question{Kind: store.QuestionConfirmRetry}
		t.reply.Question = t.st.PendingQuestion
		return store.PhaseResponding
	}

	t.reply.Outcome = &out
	t.reply.Intent = t.st.Intent
	t.reply.EpisodeDone = true
	t.st.ResetEpisode()
	return store.PhaseResponding
}

// confirmRetry resolves an operation whose result was unknown after a timeout.
func (o *Orchestrator) confirmRetry(ctx context.Context, t *turn) store.Phase {
	t.heard = o.filler.Understand(ctx, t.st, t.message)

	switch {
	case t.heard.Reset || (t.heard.Confirmation != nil && !*t.heard.Confirmation):
		t.reply.Intent = t.st.Intent
		t.st.ResetEpisode()
		t.reply.Notice = response.NoticeRetryDropped
		t.reply.EpisodeDone = true
		return store.PhaseResponding
	case t.heard.Confirmation != nil:
		o.logger.Info("ORCHESTRATOR", "User confirmed retry", map[string]interface{}{
			"session_id": t.st.SessionID,
			"operation":  t.st.PendingRetry.Operation,
		})
		t.st.PendingRetry = nil
		t.st.PendingQuestion = nil
		t.st.CommittedSlot = ""
		t.heard = interpret.Empty()
		if t.st.Intent == store.IntentCreateBooking {
			return store.PhasePrechecking
		}
		return store.PhaseDispatching
	}

	t.reply.Question = t.st.PendingQuestion
	return store.PhaseResponding
}

func clarifying(heard *interpret.Result) string {
	if heard == nil {
		return ""
	}
	return heard.ClarifyingQuestion
}

func copyForm(form map[string]string) map[string]string {
	if len(form) == 0 {
		return nil
	}
	out := make(map[string]string, len(form))
	for k, v := range form {
		out[k] = v
	}
	return out
}
