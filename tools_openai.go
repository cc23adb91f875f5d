package instructagent

// ──────────────────────────────────────────────
// OpenAI wire types — tool call bridge
// ──────────────────────────────────────────────

// ToolCallInput is a single tool call from the endpoint's response,
// matching choices[0].message.tool_calls[].
type ToolCallInput struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"` // JSON string
	} `json:"function"`
}

// ToolCallResult holds the outcome of executing one tool call.
type ToolCallResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Error      string `json:"error,omitempty"`
}

// ToMessage converts the result to an OpenAI-compatible tool message.
func (r *ToolCallResult) ToMessage() map[string]interface{} {
	content := r.Content
	if r.Error != "" {
		content = r.Error
	}
	return map[string]interface{}{
		"role":         "tool",
		"tool_call_id": r.ToolCallID,
		"content":      content,
	}
}

// assistantToolCallMessage serializes an assistant message carrying tool
// calls back into history form, so the follow-up completion sees what the
// model asked for.
func assistantToolCallMessage(msg *LLMMessage) map[string]interface{} {
	calls := make([]map[string]interface{}, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, map[string]interface{}{
			"id":   tc.ID,
			"type": "function",
			"function": map[string]string{
				"name":      tc.Function.Name,
				"arguments": tc.Function.Arguments,
			},
		})
	}
	return map[string]interface{}{
		"role":       "assistant",
		"content":    msg.Content,
		"tool_calls": calls,
	}
}
