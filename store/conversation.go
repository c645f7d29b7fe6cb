package store

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message within a conversation.
// Turns are immutable once appended; ordering is insertion order.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is a durable, ordered sequence of turns keyed by an opaque id.
// The id is assigned exactly once, when the first turn is durably appended to
// a previously non-existent session.
type Conversation struct {
	ID        string
	Name      string
	AgentID   string
	Messages  []Turn
	CreatedTs int64
	UpdatedTs int64
}

type FindConversation struct {
	ID      *string
	AgentID *string
}

type UpdateConversation struct {
	ID        string
	Name      *string
	Messages  *[]Turn
	UpdatedTs *int64
}

type DeleteConversation struct {
	ID string
}
