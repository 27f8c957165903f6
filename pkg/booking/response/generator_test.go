package response

import (
	"context"
	"errors"
	"testing"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/llm"
	"restaurant-booking-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTemplateGenerator(t *testing.T) {
	g := NewTemplateGenerator("TheHungryUnicorn")

	tests := []struct {
		name     string
		in       Input
		contains string
	}{
		{"missing field", Input{Question: &store.Question{Kind: store.QuestionMissingField, Field: "party_size"}}, "number of guests"},
		{"correction", Input{Question: &store.Question{Kind: store.QuestionCorrection, Field: "party_size", Reason: "must be positive"}}, "must be positive"},
		{"slot taken", Input{Question: &store.Question{Kind: store.QuestionCorrection, Field: "visit_time", Reason: "slot unavailable"}}, "What time"},
		{"cancel reason menu", Input{Question: &store.Question{Kind: store.QuestionMissingField, Field: "cancellation_reason"}}, "3) Weather"},
		{"choose change", Input{Question: &store.Question{Kind: store.QuestionChooseChange, Fields: []string{"visit_date", "party_size"}}}, "number of guests"},
		{"confirm retry", Input{Question: &store.Question{Kind: store.QuestionConfirmRetry}}, "try again"},
		{"created", Input{Outcome: &store.Outcome{Kind: store.OutcomeSuccess, Operation: "create", Payload: map[string]interface{}{
			"booking_reference": "ABC1234", "visit_date": "2025-06-12", "visit_time": "19:00:00", "party_size": float64(4),
		}}}, "ABC1234"},
		{"availability from json", Input{Outcome: &store.Outcome{Kind: store.OutcomeSuccess, Operation: "search_availability", Payload: map[string]interface{}{
			"visit_date": "2025-06-12", "party_size": 2, "available_times": []interface{}{"18:00:00", "19:30:00"},
		}}}, "18:00, 19:30"},
		{"next day", Input{Outcome: &store.Outcome{Kind: store.OutcomeSuccess, Operation: "search_availability", Payload: map[string]interface{}{
			"visit_date": "2025-06-12", "party_size": 2, "next_available_date": "2025-06-14", "next_available_times": []string{"20:00:00"},
		}}}, "2025-06-14"},
		{"not found", Input{Outcome: &store.Outcome{Kind: store.OutcomeNotFound}}, "couldn't find"},
		{"not owned", Input{Outcome: &store.Outcome{Kind: store.OutcomeNotFound, Code: store.CodeNotOwned}}, "on your account"},
		{"timeout", Input{Outcome: &store.Outcome{Kind: store.OutcomeExternalError, Code: store.CodeTimeout}}, "too long"},
		{"clarify", Input{Notice: NoticeClarify}, "TheHungryUnicorn"},
		{"reset", Input{Notice: NoticeReset}, "start over"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, g.Generate(context.Background(), tt.in), tt.contains)
		})
	}
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	args := m.Called(ctx, history)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestLLMGenerator(t *testing.T) {
	in := Input{Outcome: &store.Outcome{Kind: store.OutcomeNotFound}}

	ok := new(mockProvider)
	ok.On("Chat", mock.Anything, mock.MatchedBy(func(h []llm.Message) bool {
		return len(h) == 2 && h[0].Role == "system"
	})).Return("  Sorry, no booking matches that reference.  ", nil)
	g := NewLLMGenerator(ok, NewTemplateGenerator("TheHungryUnicorn"), logger.NewNopLogger())
	assert.Equal(t, "Sorry, no booking matches that reference.", g.Generate(context.Background(), in))

	down := new(mockProvider)
	down.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
	g = NewLLMGenerator(down, NewTemplateGenerator("TheHungryUnicorn"), logger.NewNopLogger())
	assert.Contains(t, g.Generate(context.Background(), in), "couldn't find")
}
