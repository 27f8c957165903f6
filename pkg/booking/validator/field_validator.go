package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"restaurant-booking-be/pkg/booking/schema"
	"restaurant-booking-be/pkg/store"

	playground "github.com/go-playground/validator/v10"
)

// Rejection codes
const (
	CodeRequired        = "required"
	CodeInvalidFormat   = "invalid_format"
	CodeMustBePositive  = "must_be_positive"
	CodeTooLarge        = "too_large"
	CodeInPast          = "in_past"
	CodeOutsideHours    = "outside_hours"
	CodeNotAllowed      = "not_allowed"
	CodeTooLong         = "too_long"
	CodeSlotUnavailable = "slot_unavailable"
)

const (
	MaxPartySize = 20
	DateLayout   = "2006-01-02"
	TimeLayout   = "15:04:05"
)

var (
	openingTime = 11 * time.Hour
	closingTime = 23 * time.Hour

	emailPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern     = regexp.MustCompile(`^[\d\-\+\(\)\s]{8,20}$`)
	referencePattern = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)
	leadingInt       = regexp.MustCompile(`^-?\d+`)
	clockPattern     = regexp.MustCompile(`^(\d{1,2})(?:[:.](\d{2}))?(?::(\d{2}))?\s*(am|pm)?$`)

	titles = []string{"Mr", "Mrs", "Ms", "Dr", "Prof", "Sir", "Lady"}
)

// Validator checks one candidate value against a field rule. The only input
// besides the value is the clock, so results are reproducible in tests.
type Validator struct {
	now      func() time.Time
	validate *playground.Validate
}

type Option func(*Validator)

func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{
		now:      time.Now,
		validate: playground.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check returns the normalized value on accept, or a typed rejection.
func (v *Validator) Check(field, raw string) (string, *store.FieldError) {
	def, ok := schema.FieldDef(field)
	if !ok {
		return "", reject(field, CodeNotAllowed, "is not a known field")
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		if def.Rule.Kind == schema.RuleText {
			return "", nil
		}
		return "", reject(field, CodeRequired, "is required")
	}

	switch def.Rule.Kind {
	case schema.RuleDate:
		return v.checkDate(field, value)
	case schema.RuleTime:
		return checkTime(field, value)
	case schema.RulePartySize:
		return checkPartySize(field, value)
	case schema.RuleEmail:
		return v.checkEmail(field, value)
	case schema.RulePhone:
		if !phonePattern.MatchString(value) {
			return "", reject(field, CodeInvalidFormat, "must be 8-20 digits")
		}
		return value, nil
	case schema.RuleTitle:
		for _, t := range titles {
			if strings.EqualFold(strings.TrimSuffix(value, "."), t) {
				return t, nil
			}
		}
		return "", reject(field, CodeNotAllowed, "must be one of "+strings.Join(titles, ", "))
	case schema.RuleName, schema.RuleText:
		if def.Rule.MaxLen > 0 && len([]rune(value)) > def.Rule.MaxLen {
			return "", reject(field, CodeTooLong, fmt.Sprintf("must be at most %d characters", def.Rule.MaxLen))
		}
		return value, nil
	case schema.RuleReference:
		ref := strings.ToUpper(value)
		if !referencePattern.MatchString(ref) {
			return "", reject(field, CodeInvalidFormat, "must be 3-20 letters or digits")
		}
		return ref, nil
	case schema.RuleCancellationReason:
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", reject(field, CodeInvalidFormat, "must be a number from 1 to 5")
		}
		if _, ok := schema.CancellationReasons[n]; !ok {
			return "", reject(field, CodeNotAllowed, "must be a number from 1 to 5")
		}
		return strconv.Itoa(n), nil
	}

	return "", reject(field, CodeNotAllowed, "has no validation rule")
}

// CheckAll validates every entry of form and returns the first rejection in fields order.
func (v *Validator) CheckAll(fields []string, form map[string]string) *store.FieldError {
	for _, f := range fields {
		raw, ok := form[f]
		if !ok {
			continue
		}
		if _, ferr := v.Check(f, raw); ferr != nil {
			return ferr
		}
	}
	return nil
}

func (v *Validator) today() time.Time {
	now := v.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func (v *Validator) checkDate(field, value string) (string, *store.FieldError) {
	today := v.today()

	var date time.Time
	switch strings.ToLower(value) {
	case "today", "tonight":
		date = today
	case "tomorrow":
		date = today.AddDate(0, 0, 1)
	default:
		parsed, err := time.ParseInLocation(DateLayout, value, today.Location())
		if err != nil {
			return "", reject(field, CodeInvalidFormat, "must be a date in YYYY-MM-DD format")
		}
		date = parsed
	}

	if date.Before(today) {
		return "", reject(field, CodeInPast, "cannot be in the past")
	}
	return date.Format(DateLayout), nil
}

func checkTime(field, value string) (string, *store.FieldError) {
	m := clockPattern.FindStringSubmatch(strings.ToLower(strings.ReplaceAll(value, " ", "")))
	if m == nil {
		return "", reject(field, CodeInvalidFormat, "must be a time in HH:MM format")
	}

	hour, _ := strconv.Atoi(m[1])
	minute, second := 0, 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}

	switch m[4] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "":
		if m[2] == "" {
			// A bare number like "7" is not a time.
			return "", reject(field, CodeInvalidFormat, "must be a time in HH:MM format")
		}
	}

	if hour > 23 || minute > 59 || second > 59 {
		return "", reject(field, CodeInvalidFormat, "must be a time in HH:MM format")
	}

	t := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second
	if t < openingTime || t > closingTime {
		return "", reject(field, CodeOutsideHours, "must be between 11:00 and 23:00")
	}
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second), nil
}

func checkPartySize(field, value string) (string, *store.FieldError) {
	digits := leadingInt.FindString(value)
	if digits == "" {
		return "", reject(field, CodeInvalidFormat, "must be a whole number")
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "", reject(field, CodeInvalidFormat, "must be a whole number")
	}
	if n <= 0 {
		return "", reject(field, CodeMustBePositive, "must be positive")
	}
	if n > MaxPartySize {
		return "", reject(field, CodeTooLarge, fmt.Sprintf("cannot exceed %d", MaxPartySize))
	}
	return strconv.Itoa(n), nil
}

func (v *Validator) checkEmail(field, value string) (string, *store.FieldError) {
	if err := v.validate.Var(value, "required,email"); err != nil || !emailPattern.MatchString(value) {
		return "", reject(field, CodeInvalidFormat, "must be a valid email address")
	}
	return strings.ToLower(value), nil
}

func reject(field, code, reason string) *store.FieldError {
	return &store.FieldError{Field: field, Code: code, Reason: reason}
}
