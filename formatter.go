package instructagent

import "strings"

// ──────────────────────────────────────────────
// Response Formatter — deterministic chat display
// ──────────────────────────────────────────────
//
// FormatResponse classifies a raw model reply and renders it for the chat
// widget. Classification is first match wins, in this order: code block,
// reasoning trace, final answer, warning, plain paragraphs. Every branch
// prepends the agent header. The function is pure and total: any input maps
// to a displayable string, never to a failure.

const formatterTip = "**Tip:** Try related queries."

var warningWords = []string{"error", "cannot", "unable", "failed"}

// FormatResponse renders a raw model reply for display in the widget.
func FormatResponse(raw string, meta AgentMetadata) string {
	resp := strings.TrimSpace(raw)
	header := displayHeader(meta)

	// Code blocks pass through untouched.
	if strings.Contains(resp, "```") {
		return header + resp
	}

	// Leaked reasoning traces render as a thinking block.
	if strings.HasPrefix(resp, "Observation:") ||
		(strings.HasPrefix(resp, "[") && strings.Contains(resp, "processing")) {
		return header + "**Agent Thinking:**\n```\n" + resp + "\n```\n\n**Response:** Processing..."
	}

	// Only the text after the last "Final Answer:" marker is shown.
	if strings.Contains(resp, "Final Answer:") {
		parts := strings.Split(resp, "Final Answer:")
		return header + formatFinalAnswer(parts[len(parts)-1])
	}

	if containsWarningWord(resp) {
		return header + "**Notice:**\n" + resp + "\n\n" + formatterTip
	}

	return header + formatParagraphs(resp)
}

// FormatError renders a failed turn as an inline error block. The widget
// shows it as the reply so the conversation surface stays alive.
func FormatError(err error, meta AgentMetadata) string {
	return displayHeader(meta) + "**System Error**\n```\n" + err.Error() +
		"\n```\n\nPlease try again or restart the application."
}

func displayHeader(meta AgentMetadata) string {
	return "**" + meta.Name + "** (" + meta.Expertise + ")\n\n"
}

// formatFinalAnswer re-indents bullet lines to two spaces and keeps other
// lines as they are.
func formatFinalAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	var b strings.Builder
	for _, line := range strings.Split(answer, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "• ") {
			b.WriteString("  " + trimmed + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func containsWarningWord(resp string) bool {
	lower := strings.ToLower(resp)
	for _, w := range warningWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// formatParagraphs splits on blank lines; bullet paragraphs indent two
// spaces, the rest keep a trailing blank line.
func formatParagraphs(resp string) string {
	var b strings.Builder
	for _, para := range strings.Split(resp, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "- ") {
			b.WriteString("  " + para + "\n")
		} else {
			b.WriteString(para + "\n\n")
		}
	}
	return b.String()
}
