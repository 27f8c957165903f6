package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/booking/schema"
	"restaurant-booking-be/pkg/llm"
	"restaurant-booking-be/pkg/store"
)

const historyWindow = 6

// LLMInterpreter asks a language model for a JSON reading of the message.
// When the model fails or answers with something unparsable, the fallback
// interpreter (if any) is consulted instead.
type LLMInterpreter struct {
	provider llm.LLMProvider
	fallback Interpreter
	logger   logger.ILogger
}

func NewLLMInterpreter(provider llm.LLMProvider, fallback Interpreter, log logger.ILogger) *LLMInterpreter {
	return &LLMInterpreter{provider: provider, fallback: fallback, logger: log}
}

var _ Interpreter = &LLMInterpreter{}

type llmReply struct {
	Intent             string            `json:"intent"`
	Fields             map[string]string `json:"fields"`
	ClarifyingQuestion string            `json:"clarifying_question"`
	Confirmation       *bool             `json:"confirmation"`
	Reset              bool              `json:"reset"`
}

func (l *LLMInterpreter) Interpret(ctx context.Context, req Request) (*Result, error) {
	prompt := buildPrompt(req)

	response, err := l.provider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithJSONMode())
	if err != nil {
		l.logger.Error("INTERPRET", "LLM interpretation failed", map[string]interface{}{"error": err.Error()})
		return l.fallbackOr(ctx, req, err)
	}

	res, err := parseReply(response, req)
	if err != nil {
		l.logger.Warn("INTERPRET", "LLM reply unparsable, using fallback", map[string]interface{}{
			"error":    err.Error(),
			"response": truncate(response, 200),
		})
		return l.fallbackOr(ctx, req, err)
	}

	l.logger.Debug("INTERPRET", "Message interpreted", map[string]interface{}{
		"intent": res.Intent,
		"fields": res.Fields,
	})
	return res, nil
}

func (l *LLMInterpreter) fallbackOr(ctx context.Context, req Request, err error) (*Result, error) {
	if l.fallback == nil {
		return nil, err
	}
	return l.fallback.Interpret(ctx, req)
}

func buildPrompt(req Request) string {
	var p strings.Builder

	p.WriteString("<system>\n")
	p.WriteString("You read messages sent to a restaurant booking assistant.\n")
	p.WriteString("You never answer the guest. You only report what the message says, as one JSON object.\n")
	p.WriteString("</system>\n\n")

	if !req.Today.IsZero() {
		p.WriteString(fmt.Sprintf("<today>%s (%s)</today>\n\n", req.Today.Format("2006-01-02"), req.Today.Weekday()))
	}

	if len(req.History) > 0 {
		p.WriteString("<recent_conversation>\n")
		start := 0
		if len(req.History) > historyWindow {
			start = len(req.History) - historyWindow
		}
		for _, t := range req.History[start:] {
			p.WriteString(fmt.Sprintf("%s: %s\n", t.Role, truncate(t.Content, 200)))
		}
		p.WriteString("</recent_conversation>\n\n")
	}

	if req.Pending != nil {
		p.WriteString("<last_question>\n")
		switch {
		case req.Pending.Kind == store.QuestionConfirmRetry:
			p.WriteString("The assistant asked the guest to confirm retrying an operation (yes/no).\n")
		case req.Pending.Field != "":
			p.WriteString(fmt.Sprintf("The assistant asked for: %s\n", req.Pending.Field))
		default:
			p.WriteString(fmt.Sprintf("The assistant asked which of these to change: %s\n", strings.Join(req.Pending.Fields, ", ")))
		}
		p.WriteString("</last_question>\n\n")
	}

	p.WriteString("<message>\n")
	p.WriteString(req.Input)
	p.WriteString("\n</message>\n\n")

	p.WriteString("<output_format>\n{\n")
	if len(req.Intents) > 0 {
		names := make([]string, 0, len(req.Intents)+1)
		for _, i := range req.Intents {
			names = append(names, string(i))
		}
		names = append(names, string(store.IntentUnknown))
		p.WriteString(fmt.Sprintf("  \"intent\": one of %s,\n", strings.Join(names, " | ")))
	}
	p.WriteString("  \"fields\": { only keys the guest actually gave a value for },\n")
	p.WriteString("  \"clarifying_question\": \"\" or a short question when the message is ambiguous,\n")
	p.WriteString("  \"confirmation\": true | false | null,\n")
	p.WriteString("  \"reset\": true only if the guest wants to start over\n")
	p.WriteString("}\n</output_format>\n\n")

	p.WriteString("<fields>\n")
	for _, name := range targetFields(req) {
		if def, ok := schema.FieldDef(name); ok {
			p.WriteString(fmt.Sprintf("- %s: %s\n", name, def.Description))
		}
	}
	p.WriteString("</fields>\n\n")
	p.WriteString("Copy values as the guest wrote them. Do not invent values. Resolve relative dates against <today> as YYYY-MM-DD.\n")

	return p.String()
}

func targetFields(req Request) []string {
	if len(req.Fields) > 0 {
		return req.Fields
	}
	return schema.AllFields()
}

func parseReply(response string, req Request) (*Result, error) {
	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var reply llmReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("unmarshal reply: %w", err)
	}

	res := Empty()
	if len(req.Intents) > 0 {
		res.Intent = store.ParseIntent(reply.Intent)
	}
	allowed := targetFields(req)
	for k, v := range reply.Fields {
		v = strings.TrimSpace(v)
		if v == "" || !wanted(allowed, k) {
			continue
		}
		res.Fields[k] = v
	}
	res.ClarifyingQuestion = strings.TrimSpace(reply.ClarifyingQuestion)
	res.Confirmation = reply.Confirmation
	res.Reset = reply.Reset
	return res, nil
}

// extractJSON strips markdown fences and chatter around the first object.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return response[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
