package domain

import "time"

// ToolCall is a model-requested action: a named tool plus arguments.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the uniform envelope produced by dispatching a ToolCall.
// CallID always echoes the originating call's ID so the model can
// correlate results with requests.
type ToolResult struct {
	CallID  string `json:"callId"`
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	// Final marks a result whose tool completed the conversation's
	// business flow (e.g. a confirmed booking).
	Final bool `json:"-"`
}

// Message is one turn in a conversation. Text may be empty when the
// turn is purely tool calls or tool results.
type Message struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}
