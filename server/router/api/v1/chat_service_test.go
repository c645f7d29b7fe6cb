package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/linhvu2695/aiven/ai/agent"
	"github.com/linhvu2695/aiven/ai/llm"
	"github.com/linhvu2695/aiven/internal/profile"
	"github.com/linhvu2695/aiven/server/metrics"
	"github.com/linhvu2695/aiven/store"
	"github.com/linhvu2695/aiven/store/db/sqlite"
)

// fakeModel scripts model behavior for pipeline tests. The namer may call
// Complete concurrently with test assertions, hence the mutex.
type fakeModel struct {
	mu sync.Mutex

	completion string
	toolErr    error

	streamDeltas []string
	streamErr    error
}

func (f *fakeModel) Complete(_ context.Context, _ []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return "Test Title", nil
}

func (f *fakeModel) CompleteWithTools(_ context.Context, _ []llm.Message, _ []llm.ToolDescriptor) (*llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toolErr != nil {
		return nil, f.toolErr
	}
	return &llm.Completion{Content: f.completion}, nil
}

func (f *fakeModel) Stream(_ context.Context, _ []llm.Message) (<-chan string, <-chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

type fakeClientFactory struct {
	client llm.Client
}

func (f *fakeClientFactory) ClientFor(_ llm.Binding) llm.Client {
	return f.client
}

func newTestChatService(t *testing.T, model llm.Client) (*ChatService, *store.Store) {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "aiven_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver, p)
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	_, err = st.UpsertAgent(ctx, &store.Agent{
		ID:      "assistant",
		Name:    "Assistant",
		ModelID: "gpt-4o-mini",
		Persona: "Helpful.",
	})
	require.NoError(t, err)

	registry := llm.NewRegistry()
	resolver := agent.NewResolver(st, registry, agent.NewBuiltinCatalog())
	factory := &fakeClientFactory{client: model}
	namer := agent.NewNamer(st, resolver, factory)
	m := metrics.New(prometheus.NewRegistry())
	return NewChatService(st, resolver, agent.NewRunner(), namer, factory, registry, m), st
}

func postJSON(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/chat/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestChatCreatesSessionAndPersistsTurns(t *testing.T) {
	model := &fakeModel{completion: "Hello there."}
	service, st := newTestChatService(t, model)

	c, rec := postJSON(`{"message": "hi", "agent": "assistant"}`)
	require.NoError(t, service.Chat(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Hello there.", body["response"])

	list, err := st.ListConversations(context.Background(), &store.FindConversation{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Messages, 2)
	require.Equal(t, store.RoleUser, list[0].Messages[0].Role)
	require.Equal(t, "hi", list[0].Messages[0].Content)
	require.Equal(t, store.RoleAssistant, list[0].Messages[1].Role)
	require.Equal(t, "Hello there.", list[0].Messages[1].Content)
}

func TestChatContinuesExistingSession(t *testing.T) {
	model := &fakeModel{completion: "Continuing."}
	service, st := newTestChatService(t, model)
	ctx := context.Background()

	sessionID, err := st.AppendTurns(ctx, "", "assistant", []store.Turn{
		{Role: store.RoleUser, Content: "earlier"},
		{Role: store.RoleAssistant, Content: "noted"},
	})
	require.NoError(t, err)

	c, rec := postJSON(`{"message": "and now?", "agent": "assistant", "session_id": "` + sessionID + `"}`)
	require.NoError(t, service.Chat(c))
	require.Equal(t, http.StatusOK, rec.Code)

	turns, err := st.LoadTurns(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	require.Equal(t, "and now?", turns[2].Content)
	require.Equal(t, "Continuing.", turns[3].Content)
}

func TestChatUnknownAgent(t *testing.T) {
	service, _ := newTestChatService(t, &fakeModel{})

	c, _ := postJSON(`{"message": "hi", "agent": "nobody"}`)
	err := service.Chat(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestChatValidationFailure(t *testing.T) {
	service, st := newTestChatService(t, &fakeModel{})

	c, _ := postJSON(`{"agent": "assistant"}`)
	err := service.Chat(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)

	// Nothing may be persisted for a rejected request.
	list, err := st.ListConversations(context.Background(), &store.FindConversation{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestChatClassifiedErrorBecomesContent(t *testing.T) {
	model := &fakeModel{toolErr: &llm.ProviderError{StatusCode: 400, APIType: "BadRequestError", Detail: "nope"}}
	service, st := newTestChatService(t, model)

	c, rec := postJSON(`{"message": "hi", "agent": "assistant"}`)
	require.NoError(t, service.Chat(c))
	// Classified failures answer as content, never as transport errors.
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["response"], "Sorry")

	list, err := st.ListConversations(context.Background(), &store.FindConversation{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Messages, 2)
	require.Equal(t, body["response"], list[0].Messages[1].Content)
}

func TestChatStreamProtocol(t *testing.T) {
	model := &fakeModel{streamDeltas: []string{"Hel", "lo."}}
	service, st := newTestChatService(t, model)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"message": "hi", "agent": "assistant"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, service.ChatStream(e.NewContext(req, rec)))

	chunks := decodeFrames(t, rec.Body.String())
	require.Len(t, chunks, 3)

	// A fresh session is announced on the first chunk and never again.
	require.NotEmpty(t, chunks[0].SessionID)
	require.Empty(t, chunks[1].SessionID)
	require.Empty(t, chunks[2].SessionID)

	require.Equal(t, chunkTypeToken, chunks[0].Type)
	require.Equal(t, "Hel", chunks[0].Token)
	require.Equal(t, "lo.", chunks[1].Token)
	require.Equal(t, chunkTypeDone, chunks[2].Type)

	// All chunks of a stream share one message id.
	require.NotEmpty(t, chunks[0].MessageID)
	require.Equal(t, chunks[0].MessageID, chunks[1].MessageID)
	require.Equal(t, chunks[0].MessageID, chunks[2].MessageID)

	turns, err := st.LoadTurns(context.Background(), chunks[0].SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "Hello.", turns[1].Content)
}

func TestChatStreamExistingSessionNotAnnounced(t *testing.T) {
	model := &fakeModel{streamDeltas: []string{"ok"}}
	service, st := newTestChatService(t, model)

	sessionID, err := st.AppendTurns(context.Background(), "", "assistant", []store.Turn{
		{Role: store.RoleUser, Content: "earlier"},
	})
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/chat/stream",
		strings.NewReader(`{"message": "hi", "agent": "assistant", "session_id": "`+sessionID+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, service.ChatStream(e.NewContext(req, rec)))

	for _, chunk := range decodeFrames(t, rec.Body.String()) {
		require.Empty(t, chunk.SessionID)
	}
}

func TestChatStreamClassifiedError(t *testing.T) {
	model := &fakeModel{streamErr: &llm.ProviderError{StatusCode: 400, Detail: "unsupported image/gif input"}}
	service, st := newTestChatService(t, model)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"message": "hi", "agent": "assistant"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, service.ChatStream(e.NewContext(req, rec)))

	chunks := decodeFrames(t, rec.Body.String())
	require.Len(t, chunks, 2)

	// The classified failure travels as ordinary token content.
	require.Equal(t, chunkTypeToken, chunks[0].Type)
	require.Contains(t, chunks[0].Token, "GIF")
	require.NotEmpty(t, chunks[0].SessionID)
	require.Equal(t, chunkTypeDone, chunks[1].Type)

	turns, err := st.LoadTurns(context.Background(), chunks[0].SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, chunks[0].Token, turns[1].Content)
}

func TestChatStreamValidationFailsBeforeStreaming(t *testing.T) {
	service, _ := newTestChatService(t, &fakeModel{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"message": ""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	err := service.ChatStream(e.NewContext(req, rec))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
	// No SSE bytes were written for a rejected request.
	require.Empty(t, rec.Body.String())
}

func TestModelsEndpoint(t *testing.T) {
	service, _ := newTestChatService(t, &fakeModel{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/chat/models", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, service.Models(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog map[string][]llm.ModelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	require.Contains(t, catalog, "openai")
	require.Contains(t, catalog, "anthropic")
}
