// Package llm is the model gateway: it sends role-structured instructions to
// the Anthropic Messages API and returns the raw text of the reply.
//
// Calls are bounded by an HTTP timeout and retried with exponential backoff
// on 408/429/5xx responses and network timeouts. Context cancellation stops
// retries immediately. The gateway never interprets the reply; callers
// decode and sanitize it.
package llm

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged instruction.
type Message struct {
	Role    Role
	Content string
}

// OutputMode is the reply format requested from the model.
type OutputMode int

const (
	// FreeText asks for plain prose.
	FreeText OutputMode = iota
	// JSON asks for a single machine-parseable JSON value.
	JSON
)

func (m OutputMode) String() string {
	switch m {
	case JSON:
		return "json"
	default:
		return "text"
	}
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
