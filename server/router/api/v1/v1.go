package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/linhvu2695/aiven/internal/profile"
	"github.com/linhvu2695/aiven/store"
)

// APIV1Service registers the v1 REST surface.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Chat    *ChatService
}

func NewAPIV1Service(p *profile.Profile, st *store.Store, chat *ChatService) *APIV1Service {
	return &APIV1Service{
		Profile: p,
		Store:   st,
		Chat:    chat,
	}
}

func (s *APIV1Service) Register(rootGroup *echo.Group) {
	chatGroup := rootGroup.Group("/chat")
	chatGroup.POST("/", s.Chat.Chat)
	chatGroup.POST("/stream", s.Chat.ChatStream)
	chatGroup.GET("/models", s.Chat.Models)
	chatGroup.GET("/agents", s.ListAgents)
	chatGroup.GET("/conversations", s.ListConversations)
	chatGroup.GET("/conversations/:id", s.GetConversation)
	chatGroup.DELETE("/conversations/:id", s.DeleteConversation)
}

// ConversationSummary is the list-view projection of a conversation.
type ConversationSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AgentID      string `json:"agent_id"`
	MessageCount int    `json:"message_count"`
	CreatedTs    int64  `json:"created_ts"`
	UpdatedTs    int64  `json:"updated_ts"`
}

// ConversationDetail is the full projection of a conversation.
type ConversationDetail struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	AgentID   string       `json:"agent_id"`
	Messages  []store.Turn `json:"messages"`
	CreatedTs int64        `json:"created_ts"`
	UpdatedTs int64        `json:"updated_ts"`
}

// AgentInfo is the public projection of an agent profile.
type AgentInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ModelID     string   `json:"model_id"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
}

// ListConversations handles GET /chat/conversations.
func (s *APIV1Service) ListConversations(c echo.Context) error {
	ctx := c.Request().Context()
	find := &store.FindConversation{}
	if agentID := c.QueryParam("agent_id"); agentID != "" {
		find.AgentID = &agentID
	}
	conversations, err := s.Store.ListConversations(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list conversations").SetInternal(err)
	}
	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summaries = append(summaries, ConversationSummary{
			ID:           conversation.ID,
			Name:         conversation.Name,
			AgentID:      conversation.AgentID,
			MessageCount: len(conversation.Messages),
			CreatedTs:    conversation.CreatedTs,
			UpdatedTs:    conversation.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": summaries})
}

// GetConversation handles GET /chat/conversations/:id.
func (s *APIV1Service) GetConversation(c echo.Context) error {
	ctx := c.Request().Context()
	conversation, err := s.Store.GetConversation(ctx, c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get conversation").SetInternal(err)
	}
	if conversation == nil {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	return c.JSON(http.StatusOK, ConversationDetail{
		ID:        conversation.ID,
		Name:      conversation.Name,
		AgentID:   conversation.AgentID,
		Messages:  conversation.Messages,
		CreatedTs: conversation.CreatedTs,
		UpdatedTs: conversation.UpdatedTs,
	})
}

// DeleteConversation handles DELETE /chat/conversations/:id.
func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.Store.DeleteConversation(ctx, &store.DeleteConversation{ID: c.Param("id")}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete conversation").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": true})
}

// ListAgents handles GET /chat/agents.
func (s *APIV1Service) ListAgents(c echo.Context) error {
	ctx := c.Request().Context()
	agents, err := s.Store.ListAgents(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list agents").SetInternal(err)
	}
	infos := make([]AgentInfo, 0, len(agents))
	for _, a := range agents {
		infos = append(infos, AgentInfo{
			ID:          a.ID,
			Name:        a.Name,
			ModelID:     a.ModelID,
			Description: a.Description,
			Tools:       a.Tools,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"agents": infos})
}
