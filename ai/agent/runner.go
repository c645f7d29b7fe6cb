package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/linhvu2695/aiven/ai/llm"
	"github.com/linhvu2695/aiven/store"
)

// maxToolRounds bounds the tool-call loop per turn.
const maxToolRounds = 5

// Runner drives the reasoning loop over a model client. The loop itself is
// ordinary request/response plumbing: the model decides whether to call
// tools, the runner executes them and feeds the results back until the model
// produces a final textual answer.
type Runner struct{}

// NewRunner creates a runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Invoke performs a synchronous reasoning call. It returns the textual
// fragments of the final message concatenated in production order.
func (r *Runner) Invoke(ctx context.Context, client llm.Client, system string, turns []llm.Message, tools []Tool) (string, error) {
	messages := make([]llm.Message, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, llm.SystemPrompt(system))
	}
	messages = append(messages, turns...)

	descriptors := describeTools(tools)
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}

	var fragments []string
	for round := 0; round < maxToolRounds; round++ {
		completion, err := client.CompleteWithTools(ctx, messages, descriptors)
		if err != nil {
			return "", err
		}

		if completion.Content != "" {
			fragments = append(fragments, completion.Content)
		}
		if len(completion.ToolCalls) == 0 {
			return strings.Join(fragments, ""), nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for _, call := range completion.ToolCalls {
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    r.runTool(ctx, byName, call),
				ToolCallID: call.ID,
			})
		}
	}

	// Round limit reached; whatever text accumulated is the answer.
	slog.Warn("tool round limit reached", "rounds", maxToolRounds)
	return strings.Join(fragments, ""), nil
}

// Stream performs a streaming reasoning call. Deltas arrive lazily on the
// content channel. The tool set is accepted but not offered to the model:
// tool execution would have to interrupt the token stream mid-flight, so
// streaming turns run text-only.
func (r *Runner) Stream(ctx context.Context, client llm.Client, system string, turns []llm.Message, tools []Tool) (<-chan string, <-chan error) {
	if len(tools) > 0 {
		slog.Debug("streaming turn runs without tools", "requested", len(tools))
	}
	messages := make([]llm.Message, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, llm.SystemPrompt(system))
	}
	messages = append(messages, turns...)
	return client.Stream(ctx, messages)
}

func (r *Runner) runTool(ctx context.Context, byName map[string]Tool, call llm.ToolCall) string {
	tool, ok := byName[call.Function.Name]
	if !ok {
		slog.Warn("model requested unknown tool", "tool", call.Function.Name)
		return "error: unknown tool " + call.Function.Name
	}

	result, err := tool.Run(ctx, call.Function.Arguments)
	if err != nil {
		slog.Warn("tool execution failed", "tool", call.Function.Name, "error", err)
		return "error: " + err.Error()
	}
	return result
}

func describeTools(tools []Tool) []llm.ToolDescriptor {
	if len(tools) == 0 {
		return nil
	}
	descriptors := make([]llm.ToolDescriptor, len(tools))
	for i, t := range tools {
		descriptors[i] = llm.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return descriptors
}

// SystemPrompt builds the system prompt for an agent profile.
func SystemPrompt(profile *store.Agent) string {
	var sb strings.Builder
	if profile.Persona != "" {
		sb.WriteString(profile.Persona)
	}
	if profile.Tone != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Tone: ")
		sb.WriteString(profile.Tone)
	}
	if profile.Description != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(profile.Description)
	}
	return sb.String()
}

// TurnsToMessages converts stored turns to model messages, attaching the
// current attachment (if any) to the final user turn.
func TurnsToMessages(turns []store.Turn, attachment *llm.Attachment) []llm.Message {
	messages := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, llm.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	if attachment != nil {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role == string(store.RoleUser) {
				messages[i].Attachment = attachment
				break
			}
		}
	}
	return messages
}
