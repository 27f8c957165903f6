package commands

import (
	"fmt"
	"sort"
	"strings"

	"restaurant-booking-be/pkg/store"

	"github.com/charmbracelet/lipgloss"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	filledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// renderState draws the working memory of a session as a boxed panel.
func renderState(st *store.ConversationState) string {
	var b strings.Builder

	intent := string(st.Intent)
	if intent == "" {
		intent = "(none)"
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Session:"), st.SessionID)
	fmt.Fprintf(&b, "%s %s   %s %s   %s %d   %s %d\n",
		labelStyle.Render("Intent:"), intent,
		labelStyle.Render("Phase:"), st.Phase,
		labelStyle.Render("Episode:"), st.Episode,
		labelStyle.Render("Version:"), st.Version,
	)

	if len(st.RequiredFields) > 0 || len(st.OptionalFields) > 0 {
		b.WriteString(labelStyle.Render("Form:") + "\n")
		for _, f := range st.RequiredFields {
			b.WriteString("  " + fieldLine(f, st.FormData[f], true) + "\n")
		}
		for _, f := range st.OptionalFields {
			b.WriteString("  " + fieldLine(f, st.FormData[f], false) + "\n")
		}
	}

	if q := st.PendingQuestion; q != nil {
		target := q.Field
		if len(q.Fields) > 0 {
			target = strings.Join(q.Fields, ", ")
		}
		fmt.Fprintf(&b, "%s %s %s\n", labelStyle.Render("Waiting for:"), q.Kind, target)
	}
	if e := st.LastValidationError; e != nil {
		b.WriteString(warnStyle.Render(fmt.Sprintf("Last rejection: %s %s", e.Field, e.Reason)) + "\n")
	}
	if st.PendingRetry != nil {
		b.WriteString(warnStyle.Render("Awaiting confirmation to retry "+st.PendingRetry.Operation) + "\n")
	}

	if len(st.UserProfile) > 0 {
		keys := make([]string, 0, len(st.UserProfile))
		for k := range st.UserProfile {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Profile:"), strings.Join(keys, ", "))
	}

	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func fieldLine(name, value string, required bool) string {
	marker := " "
	if required {
		marker = "*"
	}
	if value == "" {
		return missingStyle.Render(fmt.Sprintf("%s %-20s -", marker, name))
	}
	return filledStyle.Render(fmt.Sprintf("%s %-20s %s", marker, name, value))
}
