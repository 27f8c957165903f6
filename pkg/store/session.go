package store

import "time"

// Intent is the closed set of things a user can ask the assistant to do.
type Intent string

const (
	IntentUnset             Intent = ""
	IntentQueryAvailability Intent = "query_availability"
	IntentCreateBooking     Intent = "create_booking"
	IntentGetBooking        Intent = "get_booking"
	IntentModifyBooking     Intent = "modify_booking"
	IntentCancelBooking     Intent = "cancel_booking"
	IntentUnknown           Intent = "unknown"
)

var knownIntents = map[Intent]bool{
	IntentQueryAvailability: true,
	IntentCreateBooking:     true,
	IntentGetBooking:        true,
	IntentModifyBooking:     true,
	IntentCancelBooking:     true,
}

// ParseIntent maps anything outside the closed set to IntentUnknown.
func ParseIntent(raw string) Intent {
	i := Intent(raw)
	if knownIntents[i] {
		return i
	}
	return IntentUnknown
}

// Actionable reports whether the intent leads to slot filling.
func (i Intent) Actionable() bool {
	return knownIntents[i]
}

// Phase names the orchestrator state a session was left in.
type Phase string

const (
	PhaseAwaitingInput Phase = "AWAITING_INPUT"
	PhaseRouting       Phase = "ROUTING"
	PhaseFormFilling   Phase = "FORM_FILLING"
	PhasePrechecking   Phase = "PRECHECKING"
	PhaseDispatching   Phase = "DISPATCHING"
	PhaseRecovering    Phase = "RECOVERING"
	PhaseResponding    Phase = "RESPONDING"
)

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// FieldError is a field-scoped rejection, raised locally or by the booking API.
type FieldError struct {
	Field  string `json:"field"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Question kinds
const (
	QuestionMissingField = "missing_field"
	QuestionCorrection   = "correction"
	QuestionChooseChange = "choose_change"
	QuestionConfirmRetry = "confirm_retry"
)

// Question is what the assistant needs from the user next.
type Question struct {
	Kind   string   `json:"kind"`
	Field  string   `json:"field,omitempty"`
	Fields []string `json:"fields,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// Outcome kinds
const (
	OutcomeSuccess        = "success"
	OutcomeParameterError = "parameter_error"
	OutcomeConflict       = "conflict"
	OutcomeExternalError  = "external_error"
	OutcomeNotFound       = "not_found"
)

// External error codes
const (
	CodeTimeout         = "timeout"
	CodeUnavailable     = "unavailable"
	CodeSchemaViolation = "schema_violation"
	CodeRejected        = "rejected"
	// CodeNotOwned marks a not_found outcome for a reference owned by someone else.
	CodeNotOwned        = "not_owned"
)

// Conflict kinds
const (
	ConflictSlotUnavailable = "slot_unavailable"
	ConflictBookingState    = "booking_state"
)

// Outcome is the classified result of one external booking operation.
type Outcome struct {
	Kind         string                 `json:"kind"`
	Operation    string                 `json:"operation"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Field        string                 `json:"field,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	ConflictKind string                 `json:"conflict_kind,omitempty"`
	Code         string                 `json:"code,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Alternatives []string               `json:"alternatives,omitempty"`
}

func (o *Outcome) IsSuccess() bool { return o != nil && o.Kind == OutcomeSuccess }

// PendingRetry marks a non-idempotent operation whose server-side result is unknown.
type PendingRetry struct {
	Operation string `json:"operation"`
	SlotKey   string `json:"slot_key,omitempty"`
}

// ConversationState is the working memory of one chat session.
type ConversationState struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`

	UserProfile map[string]string `json:"user_profile"`

	Intent         Intent            `json:"intent"`
	RequiredFields []string          `json:"required_fields"`
	OptionalFields []string          `json:"optional_fields"`
	FormData       map[string]string `json:"form_data"`

	PendingQuestion     *Question     `json:"pending_question,omitempty"`
	LastValidationError *FieldError   `json:"last_validation_error,omitempty"`
	LastToolOutcome     *Outcome      `json:"last_tool_outcome,omitempty"`
	PendingRetry        *PendingRetry `json:"pending_retry,omitempty"`

	// CommittedSlot is the date|time|party key already submitted for creation this episode.
	CommittedSlot string `json:"committed_slot,omitempty"`

	Phase   Phase  `json:"phase"`
	Episode int    `json:"episode"`
	History []Turn `json:"history"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewConversationState(sessionID, userID string) *ConversationState {
	return &ConversationState{
		SessionID:   sessionID,
		UserID:      userID,
		UserProfile: map[string]string{},
		FormData:    map[string]string{},
		Phase:       PhaseAwaitingInput,
		History:     []Turn{},
	}
}

// AppendTurn only ever extends History.
func (s *ConversationState) AppendTurn(role, content string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Content: content, CreatedAt: at})
}

// ResetEpisode drops everything tied to the current intent. History is kept.
func (s *ConversationState) ResetEpisode() {
	s.Intent = IntentUnset
	s.RequiredFields = nil
	s.OptionalFields = nil
	s.FormData = map[string]string{}
	s.PendingQuestion = nil
	s.LastValidationError = nil
	s.PendingRetry = nil
	s.LastToolOutcome = nil
	s.CommittedSlot = ""
	s.Episode++
}

// EpisodeStarted reports whether the active intent is locked in by collected data.
func (s *ConversationState) EpisodeStarted() bool {
	return s.Intent.Actionable() && len(s.FormData) > 0
}

// DeclaredField reports whether field belongs to the active intent's schema.
func (s *ConversationState) DeclaredField(field string) bool {
	for _, f := range s.RequiredFields {
		if f == field {
			return true
		}
	}
	for _, f := range s.OptionalFields {
		if f == field {
			return true
		}
	}
	return false
}

// MissingRequired returns required fields not yet in FormData, in declared order.
func (s *ConversationState) MissingRequired() []string {
	var missing []string
	for _, f := range s.RequiredFields {
		if _, ok := s.FormData[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
