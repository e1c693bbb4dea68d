// Package graph provides the core data model and execution contracts for
// Weavegraph workflows: channels, versioned state, nodes, edges, and
// reducers. The scheduler, router, barrier, builder, event bus, and
// checkpointer live in their own subpackages and operate on the types
// defined here.
package graph

// Message is a chat-style record exchanged between nodes and, ultimately,
// whatever LLM or UI layer an integrator wires in. Weavegraph itself never
// interprets Content; it only accumulates and persists messages.
type Message struct {
	// Role identifies the speaker. Use the Role* constants for the
	// conventional roles, or any other string for a custom role.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Standard role constants for conventional chat turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NewSystemMessage builds a Message with RoleSystem.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage builds a Message with RoleUser.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage builds a Message with RoleAssistant.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewMessage builds a Message with an arbitrary, non-conventional role.
// Use this for integrator-defined roles (e.g. "tool", "function") that
// don't warrant a dedicated constructor.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}
