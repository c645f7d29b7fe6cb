package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linhvu2695/aiven/ai/llm"
	"github.com/linhvu2695/aiven/store"
)

const (
	// namerMinMessages/namerMaxMessages bound the window in which a fresh
	// conversation is worth naming: after the first exchange, before the
	// topic has drifted.
	namerMinMessages = 2
	namerMaxMessages = 4

	// namerPromptMessages is how many leading turns feed the naming prompt.
	namerPromptMessages = 3

	// namerMaxRunes caps the persisted name length.
	namerMaxRunes = 50

	namerTimeout = 30 * time.Second

	namerSystemPrompt = `You generate short titles for chat conversations.
Reply with only the title: 2 to 5 words, no quotes, no trailing punctuation.`
)

// NamerStore is the slice of the store the namer needs.
type NamerStore interface {
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	RenameConversation(ctx context.Context, sessionID, name string) error
}

// Namer assigns a model-generated name to a freshly created conversation.
// Naming is strictly best-effort: it runs after the chat turn has been
// answered and no failure here may affect that turn's outcome.
type Namer struct {
	store    NamerStore
	resolver *Resolver
	clients  llm.Factory
}

// NewNamer creates a namer.
func NewNamer(store NamerStore, resolver *Resolver, clients llm.Factory) *Namer {
	return &Namer{
		store:    store,
		resolver: resolver,
		clients:  clients,
	}
}

// MaybeName names the conversation if it is in the naming window. All
// failures are logged and swallowed.
func (n *Namer) MaybeName(ctx context.Context, sessionID, agentID string) {
	ctx, cancel := context.WithTimeout(ctx, namerTimeout)
	defer cancel()

	conversation, err := n.store.GetConversation(ctx, sessionID)
	if err != nil {
		slog.Warn("namer: conversation lookup failed", "session_id", sessionID, "error", err)
		return
	}
	if conversation == nil {
		return
	}
	if len(conversation.Messages) < namerMinMessages || len(conversation.Messages) > namerMaxMessages {
		return
	}
	if conversation.Name != "" {
		return
	}

	_, binding, err := n.resolver.Resolve(ctx, agentID)
	if err != nil {
		slog.Warn("namer: agent resolution failed", "session_id", sessionID, "agent_id", agentID, "error", err)
		return
	}

	prompt := buildNamingPrompt(conversation.Messages)
	name, err := n.clients.ClientFor(binding).Complete(ctx, []llm.Message{
		llm.SystemPrompt(namerSystemPrompt),
		llm.UserMessage(prompt),
	})
	if err != nil {
		slog.Warn("namer: model call failed", "session_id", sessionID, "error", err)
		return
	}

	name = sanitizeName(name)
	if name == "" {
		return
	}

	if err := n.store.RenameConversation(ctx, sessionID, name); err != nil {
		slog.Warn("namer: rename failed", "session_id", sessionID, "error", err)
		return
	}
	slog.Info("conversation named", "session_id", sessionID, "name", name)
}

func buildNamingPrompt(messages []store.Turn) string {
	limit := namerPromptMessages
	if len(messages) < limit {
		limit = len(messages)
	}

	var sb strings.Builder
	sb.WriteString("Name this conversation:\n\n")
	for _, turn := range messages[:limit] {
		content := turn.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		sb.WriteString(fmt.Sprintf("[%s]: %s\n\n", turn.Role, content))
	}
	return sb.String()
}

// sanitizeName strips surrounding quotes and whitespace and truncates the
// label to the persisted limit.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'`)
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) > namerMaxRunes {
		name = string(runes[:namerMaxRunes])
	}
	return name
}
