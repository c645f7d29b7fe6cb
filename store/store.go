// Package store provides database access to conversations and agent profiles.
package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/linhvu2695/aiven/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}

// GetConversation returns the conversation with the given id, or nil if it
// does not exist.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	if id == "" {
		return nil, nil
	}
	list, err := s.driver.ListConversations(ctx, &FindConversation{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// LoadTurns returns the ordered turns of a session. An empty or unknown
// session id yields an empty slice, not an error.
func (s *Store) LoadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	conversation, err := s.GetConversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return []Turn{}, nil
	}
	return conversation.Messages, nil
}

// AppendTurns appends turns to a session and returns the session id.
// When sessionID is empty a new conversation record is created first and its
// generated id is returned. The append is a read-modify-write of the full
// message list; concurrent appends against the same session are
// last-write-wins, which is accepted because all appends within one chat
// turn are issued sequentially by the same request.
func (s *Store) AppendTurns(ctx context.Context, sessionID, agentID string, turns []Turn) (string, error) {
	now := time.Now().UnixMilli()

	conversation, err := s.GetConversation(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if conversation == nil {
		conversation, err = s.driver.CreateConversation(ctx, &Conversation{
			ID:        shortuuid.New(),
			AgentID:   agentID,
			Messages:  []Turn{},
			CreatedTs: now,
			UpdatedTs: now,
		})
		if err != nil {
			return "", err
		}
	}

	messages := append(conversation.Messages, turns...)
	if _, err := s.driver.UpdateConversation(ctx, &UpdateConversation{
		ID:        conversation.ID,
		Messages:  &messages,
		UpdatedTs: &now,
	}); err != nil {
		return "", err
	}
	return conversation.ID, nil
}

// ClearTurns replaces the message list of a session with an empty list.
// Used only by maintenance flows, not by the chat pipeline.
func (s *Store) ClearTurns(ctx context.Context, sessionID string) error {
	now := time.Now().UnixMilli()
	empty := []Turn{}
	_, err := s.driver.UpdateConversation(ctx, &UpdateConversation{
		ID:        sessionID,
		Messages:  &empty,
		UpdatedTs: &now,
	})
	return err
}

// RenameConversation sets the conversation name and bumps its timestamp.
func (s *Store) RenameConversation(ctx context.Context, sessionID, name string) error {
	now := time.Now().UnixMilli()
	_, err := s.driver.UpdateConversation(ctx, &UpdateConversation{
		ID:        sessionID,
		Name:      &name,
		UpdatedTs: &now,
	})
	return err
}

// GetAgent returns the agent with the given id, or nil if it does not exist.
func (s *Store) GetAgent(ctx context.Context, id string) (*Agent, error) {
	list, err := s.driver.ListAgents(ctx, &FindAgent{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) ListAgents(ctx context.Context) ([]*Agent, error) {
	return s.driver.ListAgents(ctx, &FindAgent{})
}

func (s *Store) UpsertAgent(ctx context.Context, upsert *Agent) (*Agent, error) {
	return s.driver.UpsertAgent(ctx, upsert)
}
