package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linhvu2695/aiven/ai/llm"
	"github.com/linhvu2695/aiven/store"
)

func newTestNamer(conversation *store.Conversation, model *fakeClient) (*Namer, *fakeNamerStore) {
	agents := &fakeAgentStore{agents: map[string]*store.Agent{
		"assistant": {ID: "assistant", Name: "Assistant", ModelID: "gpt-4o-mini"},
	}}
	resolver := NewResolver(agents, llm.NewRegistry(), NewBuiltinCatalog())
	namerStore := &fakeNamerStore{conversation: conversation}
	return NewNamer(namerStore, resolver, &fakeFactory{client: model}), namerStore
}

func turnsOf(contents ...string) []store.Turn {
	turns := make([]store.Turn, 0, len(contents))
	for i, content := range contents {
		role := store.RoleUser
		if i%2 == 1 {
			role = store.RoleAssistant
		}
		turns = append(turns, store.Turn{Role: role, Content: content})
	}
	return turns
}

func TestMaybeNameNamesFreshConversation(t *testing.T) {
	model := &fakeClient{completions: []string{"Trip Planning"}}
	namer, namerStore := newTestNamer(&store.Conversation{
		ID:       "s1",
		Messages: turnsOf("plan my trip", "sure, where to?"),
	}, model)

	namer.MaybeName(context.Background(), "s1", "assistant")

	require.Equal(t, 1, model.completeCalls)
	require.Equal(t, 1, namerStore.renameCalls)
	require.Equal(t, "Trip Planning", namerStore.renamedTo)
}

func TestMaybeNameSkipsTooFewMessages(t *testing.T) {
	model := &fakeClient{completions: []string{"unused"}}
	namer, namerStore := newTestNamer(&store.Conversation{
		ID:       "s1",
		Messages: turnsOf("hello"),
	}, model)

	namer.MaybeName(context.Background(), "s1", "assistant")

	require.Zero(t, model.completeCalls)
	require.Zero(t, namerStore.renameCalls)
}

func TestMaybeNameSkipsMatureConversation(t *testing.T) {
	model := &fakeClient{completions: []string{"unused"}}
	namer, namerStore := newTestNamer(&store.Conversation{
		ID:       "s1",
		Messages: turnsOf("a", "b", "c", "d", "e"),
	}, model)

	namer.MaybeName(context.Background(), "s1", "assistant")

	require.Zero(t, model.completeCalls)
	require.Zero(t, namerStore.renameCalls)
}

func TestMaybeNameSkipsAlreadyNamed(t *testing.T) {
	model := &fakeClient{completions: []string{"unused"}}
	namer, namerStore := newTestNamer(&store.Conversation{
		ID:       "s1",
		Name:     "Existing Name",
		Messages: turnsOf("a", "b"),
	}, model)

	namer.MaybeName(context.Background(), "s1", "assistant")

	require.Zero(t, model.completeCalls)
	require.Zero(t, namerStore.renameCalls)
}

func TestMaybeNameSkipsMissingConversation(t *testing.T) {
	model := &fakeClient{completions: []string{"unused"}}
	namer, namerStore := newTestNamer(nil, model)

	namer.MaybeName(context.Background(), "ghost", "assistant")

	require.Zero(t, model.completeCalls)
	require.Zero(t, namerStore.renameCalls)
}

func TestMaybeNameStripsQuotesAndTruncates(t *testing.T) {
	longName := `"` + strings.Repeat("x", 80) + `"`
	model := &fakeClient{completions: []string{longName}}
	namer, namerStore := newTestNamer(&store.Conversation{
		ID:       "s1",
		Messages: turnsOf("a", "b"),
	}, model)

	namer.MaybeName(context.Background(), "s1", "assistant")

	require.Equal(t, 1, namerStore.renameCalls)
	require.Equal(t, strings.Repeat("x", 50), namerStore.renamedTo)
}

func TestMaybeNameSwallowsModelFailure(t *testing.T) {
	model := &fakeClient{completeErr: &llm.ProviderError{StatusCode: 500, Detail: "boom"}}
	namer, namerStore := newTestNamer(&store.Conversation{
		ID:       "s1",
		Messages: turnsOf("a", "b"),
	}, model)

	// Must not panic and must not rename.
	namer.MaybeName(context.Background(), "s1", "assistant")

	require.Equal(t, 1, model.completeCalls)
	require.Zero(t, namerStore.renameCalls)
}

func TestBuildNamingPromptUsesLeadingTurns(t *testing.T) {
	prompt := buildNamingPrompt(turnsOf("one", "two", "three", "four"))
	require.Contains(t, prompt, "one")
	require.Contains(t, prompt, "three")
	require.NotContains(t, prompt, "four")
}

func TestSanitizeName(t *testing.T) {
	require.Equal(t, "Weekend Plans", sanitizeName(`  "Weekend Plans"  `))
	require.Equal(t, "Weekend Plans", sanitizeName(`'Weekend Plans'`))
	require.Equal(t, "", sanitizeName(`""`))
	runes := []rune(sanitizeName(strings.Repeat("é", 60)))
	require.Len(t, runes, 50)
}
