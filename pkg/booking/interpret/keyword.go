package interpret

import (
	"context"
	"regexp"
	"strings"

	"restaurant-booking-be/pkg/booking/schema"
	"restaurant-booking-be/pkg/store"
)

// intentKeywords are scored by whole-word hits; ties go to the earlier entry.
var intentKeywords = []struct {
	intent   store.Intent
	keywords []string
}{
	{store.IntentCancelBooking, []string{"cancel", "remove", "delete", "don't want", "revoke", "not going"}},
	{store.IntentModifyBooking, []string{"change", "modify", "update", "edit", "move", "adjust", "switch", "reschedule"}},
	{store.IntentGetBooking, []string{"show", "view", "my booking", "my bookings", "my reservation", "check booking", "look up", "details"}},
	{store.IntentQueryAvailability, []string{"check", "available", "availability", "free", "open", "time", "when", "slot", "slots"}},
	{store.IntentCreateBooking, []string{"book", "reserve", "reservation", "table", "want", "need", "make"}},
}

var (
	isoDatePattern   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	relativeDate     = regexp.MustCompile(`\b(today|tonight|tomorrow)\b`)
	clockTimePattern = regexp.MustCompile(`\b\d{1,2}[:.]\d{2}(?::\d{2})?\s*(?:am|pm)?\b`)
	meridiemPattern  = regexp.MustCompile(`\b\d{1,2}\s*(?:am|pm)\b`)
	guestsPattern    = regexp.MustCompile(`(-?\d{1,3})\s*(?:people|persons|person|guests|guest|pax|of us|diners)\b`)
	forPattern       = regexp.MustCompile(`\b(?:table for|party of|for)\s+(-?\d{1,3})\b`)
	emailExtract     = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	refAfterKeyword  = regexp.MustCompile(`(?i)\b(?:reference|ref|booking)\s*(?:number|no\.?|code|is|:|#)?\s*([a-z0-9]{3,20})\b`)
	namePattern      = regexp.MustCompile(`(?i)\bmy name is\s+([a-z'\-]+)(?:\s+([a-z'\-]+))?`)
	reasonNumber     = regexp.MustCompile(`\breason\s*(?:is|:|#)?\s*(\d)\b`)
	bareNumber       = regexp.MustCompile(`^\s*(-?\d+)\s*$`)

	resetPhrases = []string{"start over", "start again", "reset", "never mind", "nevermind", "forget it"}
	yesWords     = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "please do", "go ahead", "try again", "no problem", "no worries"}
	noWords      = []string{"no", "nope", "don't", "do not", "stop"}

	reasonKeywords = []struct{ keyword, id string }{
		{"changed my mind", "1"},
		{"customer", "1"},
		{"closure", "2"},
		{"closed", "2"},
		{"weather", "3"},
		{"emergency", "4"},
		{"no show", "5"},
	}
)

// KeywordInterpreter understands messages with word lists and patterns. It
// needs no model, never fails, and is the fallback for the LLM interpreter.
type KeywordInterpreter struct{}

func NewKeywordInterpreter() *KeywordInterpreter {
	return &KeywordInterpreter{}
}

var _ Interpreter = &KeywordInterpreter{}

func (k *KeywordInterpreter) Interpret(ctx context.Context, req Request) (*Result, error) {
	text := strings.TrimSpace(req.Input)
	lower := strings.ToLower(text)
	res := Empty()

	if containsAny(lower, resetPhrases) {
		res.Reset = true
		return res, nil
	}

	if len(req.Intents) > 0 {
		res.Intent = scoreIntent(lower, req.Intents)
	}

	if req.Pending != nil && req.Pending.Kind == store.QuestionConfirmRetry {
		res.Confirmation = confirmation(lower)
		return res, nil
	}

	extracted := extractFields(text, lower)

	if req.Pending != nil && req.Pending.Field != "" {
		if _, ok := extracted[req.Pending.Field]; !ok && text != "" {
			for f, v := range bareAnswer(req.Pending.Field, text) {
				if _, taken := extracted[f]; !taken {
					extracted[f] = v
				}
			}
		}
	}

	for field, value := range extracted {
		if wanted(req.Fields, field) {
			res.Fields[field] = value
		}
	}
	return res, nil
}

func scoreIntent(lower string, allowed []store.Intent) store.Intent {
	best := store.IntentUnknown
	bestScore := 0
	for _, entry := range intentKeywords {
		if !containsIntent(allowed, entry.intent) {
			continue
		}
		score := 0
		for _, kw := range entry.keywords {
			if hasWord(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = entry.intent, score
		}
	}
	return best
}

func extractFields(text, lower string) map[string]string {
	out := map[string]string{}

	if m := isoDatePattern.FindString(lower); m != "" {
		out[schema.FieldVisitDate] = m
	} else if m := relativeDate.FindString(lower); m != "" {
		out[schema.FieldVisitDate] = m
	}

	withoutDates := isoDatePattern.ReplaceAllString(lower, " ")
	if m := clockTimePattern.FindString(withoutDates); m != "" {
		out[schema.FieldVisitTime] = strings.TrimSpace(m)
	} else if m := meridiemPattern.FindString(withoutDates); m != "" {
		out[schema.FieldVisitTime] = strings.TrimSpace(m)
	}

	if m := guestsPattern.FindStringSubmatch(withoutDates); m != nil {
		out[schema.FieldPartySize] = m[1]
	} else if n := partyAfterFor(withoutDates); n != "" {
		out[schema.FieldPartySize] = n
	}

	if m := emailExtract.FindString(text); m != "" {
		out[schema.FieldEmail] = m
	}

	if ref := findReference(text); ref != "" {
		out[schema.FieldBookingReference] = ref
	}

	if m := namePattern.FindStringSubmatch(text); m != nil {
		out[schema.FieldFirstName] = m[1]
		if m[2] != "" {
			out[schema.FieldSurname] = m[2]
		}
	}

	if m := reasonNumber.FindStringSubmatch(lower); m != nil {
		out[schema.FieldCancellationReason] = m[1]
	} else {
		for _, rk := range reasonKeywords {
			if hasWord(lower, rk.keyword) {
				out[schema.FieldCancellationReason] = rk.id
				break
			}
		}
	}

	return out
}

// partyAfterFor reads "for 4" but not "for 7pm" or "for 7:30".
func partyAfterFor(lower string) string {
	for _, loc := range forPattern.FindAllStringSubmatchIndex(lower, -1) {
		rest := strings.TrimSpace(lower[loc[1]:])
		if strings.HasPrefix(rest, "am") || strings.HasPrefix(rest, "pm") ||
			strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, ".") && len(rest) > 1 {
			continue
		}
		return lower[loc[2]:loc[3]]
	}
	return ""
}

// findReference prefers "reference XYZ123" style mentions, then any upper-case
// token mixing letters and digits.
func findReference(text string) string {
	if m := refAfterKeyword.FindStringSubmatch(text); m != nil && hasDigit(m[1]) {
		return strings.ToUpper(m[1])
	}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z')
	}) {
		if len(tok) < 5 || len(tok) > 20 || tok != strings.ToUpper(tok) {
			continue
		}
		if hasDigit(tok) && hasLetter(tok) {
			return tok
		}
	}
	return ""
}

// bareAnswer treats a short reply as the value for the field just asked about.
func bareAnswer(field, text string) map[string]string {
	out := map[string]string{}
	switch field {
	case schema.FieldPartySize, schema.FieldCancellationReason:
		if m := bareNumber.FindStringSubmatch(text); m != nil {
			out[field] = m[1]
			return out
		}
	case schema.FieldFirstName:
		if parts := strings.Fields(text); len(parts) == 2 {
			out[schema.FieldFirstName] = parts[0]
			out[schema.FieldSurname] = parts[1]
			return out
		}
	}
	out[field] = strings.TrimRight(text, ".!")
	return out
}

func wanted(fields []string, field string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

func containsIntent(list []store.Intent, i store.Intent) bool {
	for _, x := range list {
		if x == i {
			return true
		}
	}
	return false
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if hasWord(lower, w) {
			return true
		}
	}
	return false
}

// confirmation reads a yes/no answer. The earliest hit decides, and at the
// same position the longer phrase wins, so "no problem" is a yes.
func confirmation(lower string) *bool {
	at, length := -1, 0
	var answer bool
	pick := func(words []string, value bool) {
		for _, w := range words {
			i := wordIndex(lower, w)
			if i < 0 {
				continue
			}
			if at < 0 || i < at || (i == at && len(w) > length) {
				at, length, answer = i, len(w), value
			}
		}
	}
	pick(yesWords, true)
	pick(noWords, false)
	if at < 0 {
		return nil
	}
	return &answer
}

// hasWord matches kw on word boundaries, so "book" does not hit "booking".
func hasWord(lower, kw string) bool {
	return wordIndex(lower, kw) >= 0
}

func wordIndex(lower, kw string) int {
	idx := 0
	for {
		i := strings.Index(lower[idx:], kw)
		if i < 0 {
			return -1
		}
		start := idx + i
		end := start + len(kw)
		if (start == 0 || !isWordByte(lower[start-1])) && (end == len(lower) || !isWordByte(lower[end])) {
			return start
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' }) >= 0
}
