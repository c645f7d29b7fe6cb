package agent

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/linhvu2695/aiven/ai/llm"
	"github.com/linhvu2695/aiven/store"
)

// ErrAgentNotFound is returned by Resolve for an unknown agent id.
var ErrAgentNotFound = errors.New("agent not found")

// AgentStore is the slice of the store the resolver needs.
type AgentStore interface {
	GetAgent(ctx context.Context, id string) (*store.Agent, error)
}

// Resolver resolves agent profiles to model bindings and tool sets.
type Resolver struct {
	agents   AgentStore
	registry *llm.Registry
	catalog  ToolCatalog
}

// NewResolver creates a resolver.
func NewResolver(agents AgentStore, registry *llm.Registry, catalog ToolCatalog) *Resolver {
	return &Resolver{
		agents:   agents,
		registry: registry,
		catalog:  catalog,
	}
}

// Resolve looks up the agent profile and binds its configured model to a
// provider. The lookup must succeed before any binding decision; binding
// itself is total and degrades to the default provider/model.
func (r *Resolver) Resolve(ctx context.Context, agentID string) (*store.Agent, llm.Binding, error) {
	profile, err := r.agents.GetAgent(ctx, agentID)
	if err != nil {
		return nil, llm.Binding{}, errors.Wrapf(err, "lookup agent %s", agentID)
	}
	if profile == nil {
		return nil, llm.Binding{}, errors.Wrapf(ErrAgentNotFound, "agent %s", agentID)
	}
	return profile, r.registry.Bind(profile.ModelID), nil
}

// LoadTools resolves a list of tool names to an executable tool set by
// filtering the catalog's discovered capabilities down to the requested
// names. A catalog failure degrades to an empty tool set and is only logged;
// a chat turn without tools beats no chat turn at all.
func (r *Resolver) LoadTools(ctx context.Context, names []string) []Tool {
	if len(names) == 0 {
		return nil
	}

	discovered, err := r.catalog.Discover(ctx)
	if err != nil {
		slog.Warn("tool discovery failed, continuing without tools", "error", err)
		return nil
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	var tools []Tool
	for _, tool := range discovered {
		if _, ok := wanted[tool.Name()]; ok {
			tools = append(tools, tool)
		}
	}

	if len(tools) < len(names) {
		slog.Debug("some requested tools are not in the catalog",
			"requested", len(names),
			"resolved", len(tools),
		)
	}
	return tools
}
