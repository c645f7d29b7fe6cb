package store

import "context"

// Driver is an interface for store driver.
// It contains all the methods that the store needs to implement.
type Driver interface {
	Migrate(ctx context.Context) error
	Close() error

	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	ListAgents(ctx context.Context, find *FindAgent) ([]*Agent, error)
	UpsertAgent(ctx context.Context, upsert *Agent) (*Agent, error)
}
