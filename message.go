package krrs

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the invocation's conversation history.
// Insertion order is the dialogue history and is semantically significant.
type Message struct {
	Role    Role
	Content string

	// ToolCalls are structured capability requests emitted by the
	// specialist. A message carrying tool calls sends the state machine
	// into Tooling.
	ToolCalls []ToolCall

	// ToolCallID correlates a tool-result message (RoleTool) with the
	// request that produced it.
	ToolCallID string

	// Name is the capability name on tool-result messages.
	Name string
}

// ToolCall is a structured request, embedded in a generated message, asking
// the orchestrator to execute a named capability before continuing.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// toolResult builds the tool-result message for a completed request.
func toolResult(tc ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: tc.ID,
		Name:       tc.Name,
	}
}

// firstUserText returns the text of the first user-authored message, falling
// back to the first message of any role when none exists.
func firstUserText(messages []Message) string {
	for _, m := range messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	if len(messages) > 0 {
		return messages[0].Content
	}
	return ""
}
