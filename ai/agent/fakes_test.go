package agent

import (
	"context"

	"github.com/linhvu2695/aiven/ai/llm"
	"github.com/linhvu2695/aiven/store"
)

// fakeClient scripts model responses for pipeline tests.
type fakeClient struct {
	completeCalls int
	completions   []string
	completeErr   error

	toolCalls       int
	toolCompletions []*llm.Completion
	toolErr         error
	seenMessages    [][]llm.Message

	streamDeltas []string
	streamErr    error
}

func (f *fakeClient) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.seenMessages = append(f.seenMessages, messages)
	f.completeCalls++
	if f.completeErr != nil {
		return "", f.completeErr
	}
	if len(f.completions) == 0 {
		return "", nil
	}
	next := f.completions[0]
	f.completions = f.completions[1:]
	return next, nil
}

func (f *fakeClient) CompleteWithTools(_ context.Context, messages []llm.Message, _ []llm.ToolDescriptor) (*llm.Completion, error) {
	f.seenMessages = append(f.seenMessages, messages)
	f.toolCalls++
	if f.toolErr != nil {
		return nil, f.toolErr
	}
	if len(f.toolCompletions) == 0 {
		return &llm.Completion{}, nil
	}
	next := f.toolCompletions[0]
	f.toolCompletions = f.toolCompletions[1:]
	return next, nil
}

func (f *fakeClient) Stream(_ context.Context, messages []llm.Message) (<-chan string, <-chan error) {
	f.seenMessages = append(f.seenMessages, messages)
	contentCh := make(chan string, len(f.streamDeltas)+1)
	errCh := make(chan error, 1)
	for _, delta := range f.streamDeltas {
		contentCh <- delta
	}
	if f.streamErr != nil {
		errCh <- f.streamErr
	}
	close(contentCh)
	close(errCh)
	return contentCh, errCh
}

// fakeFactory hands out the same scripted client for every binding.
type fakeFactory struct {
	client llm.Client
}

func (f *fakeFactory) ClientFor(_ llm.Binding) llm.Client {
	return f.client
}

// fakeAgentStore serves agent profiles from a map.
type fakeAgentStore struct {
	agents map[string]*store.Agent
}

func (f *fakeAgentStore) GetAgent(_ context.Context, id string) (*store.Agent, error) {
	return f.agents[id], nil
}

// fakeNamerStore is an in-memory single conversation record.
type fakeNamerStore struct {
	conversation *store.Conversation
	renamedTo    string
	renameCalls  int
}

func (f *fakeNamerStore) GetConversation(_ context.Context, id string) (*store.Conversation, error) {
	if f.conversation == nil || f.conversation.ID != id {
		return nil, nil
	}
	return f.conversation, nil
}

func (f *fakeNamerStore) RenameConversation(_ context.Context, sessionID, name string) error {
	f.renameCalls++
	f.renamedTo = name
	if f.conversation != nil && f.conversation.ID == sessionID {
		f.conversation.Name = name
	}
	return nil
}

// fakeTool is a scripted tool with a fixed result.
type fakeTool struct {
	name   string
	result string
	err    error
	runs   int
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "test tool" }
func (t *fakeTool) Parameters() string  { return `{"type":"object","properties":{}}` }
func (t *fakeTool) Run(_ context.Context, _ string) (string, error) {
	t.runs++
	return t.result, t.err
}
