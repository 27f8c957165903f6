package response

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/pkg/llm"
)

const replyHistoryWindow = 6

// LLMGenerator lets a model phrase the reply from the structured result. The
// template sentence is part of the prompt and also the fallback on any error.
type LLMGenerator struct {
	provider llm.LLMProvider
	fallback *TemplateGenerator
	logger   logger.ILogger
}

func NewLLMGenerator(provider llm.LLMProvider, fallback *TemplateGenerator, log logger.ILogger) *LLMGenerator {
	return &LLMGenerator{provider: provider, fallback: fallback, logger: log}
}

var _ Generator = &LLMGenerator{}

func (g *LLMGenerator) Generate(ctx context.Context, in Input) string {
	draft := g.fallback.Generate(ctx, in)

	history := make([]llm.Message, 0, replyHistoryWindow+2)
	history = append(history, llm.Message{Role: "system", Content: systemPrompt(g.fallback.restaurant)})
	start := 0
	if len(in.History) > replyHistoryWindow {
		start = len(in.History) - replyHistoryWindow
	}
	for _, t := range in.History[start:] {
		history = append(history, llm.Message{Role: t.Role, Content: t.Content})
	}
	history = append(history, llm.Message{Role: "user", Content: resultPrompt(in, draft)})

	reply, err := g.provider.Chat(ctx, history, llm.WithTemperature(0.3), llm.WithMaxTokens(300))
	if err != nil {
		g.logger.Warn("RESPONSE", "Reply generation failed, using template", map[string]interface{}{
			"error": err.Error(),
		})
		return draft
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return draft
	}
	return reply
}

func systemPrompt(restaurant string) string {
	return fmt.Sprintf(`<system>
You are the booking assistant of %s.
Rephrase the DRAFT reply in a friendly tone, in the user's language.
Never invent booking details, times or references that are not in the RESULT.
Keep it to at most three sentences.
</system>`, restaurant)
}

func resultPrompt(in Input, draft string) string {
	result := map[string]interface{}{"intent": in.Intent}
	if in.Question != nil {
		result["question"] = in.Question
	}
	if in.Outcome != nil {
		result["outcome"] = in.Outcome
	}
	if in.Notice != "" {
		result["notice"] = in.Notice
	}
	raw, _ := json.Marshal(result)

	var b strings.Builder
	b.WriteString("<result>\n")
	b.Write(raw)
	b.WriteString("\n</result>\n<draft>\n")
	b.WriteString(draft)
	b.WriteString("\n</draft>")
	return b.String()
}
