package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/linhvu2695/aiven/ai/agent"
	"github.com/linhvu2695/aiven/ai/llm"
	"github.com/linhvu2695/aiven/server/metrics"
	"github.com/linhvu2695/aiven/store"
)

// ChatService composes the chat pipeline: request normalization, agent and
// tool resolution, conversation persistence, the reasoning loop, failure
// classification and best-effort naming. All collaborators are injected
// once at process start.
type ChatService struct {
	store    *store.Store
	resolver *agent.Resolver
	runner   *agent.Runner
	namer    *agent.Namer
	clients  llm.Factory
	registry *llm.Registry
	metrics  *metrics.Metrics
	limiter  *keyedLimiter
}

// NewChatService creates the chat service.
func NewChatService(
	st *store.Store,
	resolver *agent.Resolver,
	runner *agent.Runner,
	namer *agent.Namer,
	clients llm.Factory,
	registry *llm.Registry,
	m *metrics.Metrics,
) *ChatService {
	return &ChatService{
		store:    st,
		resolver: resolver,
		runner:   runner,
		namer:    namer,
		clients:  clients,
		registry: registry,
		metrics:  m,
		limiter:  newKeyedLimiter(30, 10),
	}
}

// chatTurn carries the per-request state shared by both chat operations.
type chatTurn struct {
	req        *ChatRequest
	profile    *store.Agent
	binding    llm.Binding
	sessionID  string
	newSession bool
	messages   []llm.Message
	tools      []agent.Tool
}

// prepare runs the shared front half of both chat operations: rate check,
// normalization, agent resolution, history load, user-turn append and tool
// resolution. Returned errors map to client-facing failures.
func (s *ChatService) prepare(c echo.Context) (*chatTurn, error) {
	if !s.limiter.Allow(c.RealIP()) {
		return nil, echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	}

	req, err := parseChatRequest(c)
	if err != nil {
		return nil, err
	}

	ctx := c.Request().Context()
	profile, binding, err := s.resolver.Resolve(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	history, err := s.store.LoadTurns(ctx, req.SessionID)
	if err != nil {
		slog.Warn("chat: history load failed, starting from empty context",
			"session_id", req.SessionID,
			"error", err,
		)
		history = []store.Turn{}
	}

	userTurn := store.Turn{Role: store.RoleUser, Content: req.Message}
	sessionID, err := s.store.AppendTurns(ctx, req.SessionID, req.AgentID, []store.Turn{userTurn})
	if err != nil {
		// Persistence is best-effort: the turn still runs, it just will not
		// be recorded.
		slog.Warn("chat: user turn append failed", "session_id", req.SessionID, "error", err)
		sessionID = req.SessionID
	}

	slog.Info("chat.user_message",
		"agent_id", req.AgentID,
		"session_id", sessionID,
		"has_attachment", req.Attachment != nil,
	)

	turns := append(append([]store.Turn{}, history...), userTurn)
	return &chatTurn{
		req:        req,
		profile:    profile,
		binding:    binding,
		sessionID:  sessionID,
		newSession: sessionID != req.SessionID,
		messages:   agent.TurnsToMessages(turns, req.Attachment),
		tools:      s.resolver.LoadTools(ctx, profile.Tools),
	}, nil
}

// Chat handles POST /chat/ and returns the full response in one shot.
func (s *ChatService) Chat(c echo.Context) error {
	turn, err := s.prepare(c)
	if err != nil {
		return s.clientError(err)
	}

	ctx := c.Request().Context()
	client := s.clients.ClientFor(turn.binding)

	status := "ok"
	answer, err := s.runner.Invoke(ctx, client, agent.SystemPrompt(turn.profile), turn.messages, turn.tools)
	if err != nil {
		// Once invocation has begun, failures never surface as transport
		// errors: they are classified and answered as assistant content.
		classified := agent.Classify(err)
		slog.Error("chat: reasoning loop failed",
			"session_id", turn.sessionID,
			"kind", classified.Kind,
			"error", err,
		)
		s.metrics.ProviderErrors.WithLabelValues(string(classified.Kind)).Inc()
		answer = classified.UserMessage
		status = "classified_error"
	}

	s.persistAssistantTurn(ctx, turn, answer)
	s.nameConversationAsync(ctx, turn)
	s.metrics.ChatRequests.WithLabelValues("sync", status).Inc()

	return c.JSON(http.StatusOK, map[string]string{"response": answer})
}

// ChatStream handles POST /chat/stream and delivers the response as an SSE
// stream with a single terminal chunk.
func (s *ChatService) ChatStream(c echo.Context) error {
	turn, err := s.prepare(c)
	if err != nil {
		return s.clientError(err)
	}

	writer, err := newSSEWriter(c.Response())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	start := time.Now()
	messageID := uuid.NewString()
	status := "ok"

	// The session id is announced on the first emitted chunk, and only for
	// sessions created by this request.
	announce := ""
	if turn.newSession {
		announce = turn.sessionID
	}
	emit := func(chunk StreamChunk) error {
		chunk.MessageID = messageID
		if announce != "" {
			chunk.SessionID = announce
			announce = ""
		}
		return writer.WriteChunk(chunk)
	}

	client := s.clients.ClientFor(turn.binding)
	contentCh, errCh := s.runner.Stream(ctx, client, agent.SystemPrompt(turn.profile), turn.messages, turn.tools)

	var assistant strings.Builder
	disconnected := false
	for delta := range contentCh {
		assistant.WriteString(delta)
		if err := emit(StreamChunk{Token: delta, Type: chunkTypeToken}); err != nil {
			// Client went away: stop pulling events, keep what accumulated.
			slog.Debug("chat: client disconnected mid-stream", "session_id", turn.sessionID)
			disconnected = true
			cancel()
			break
		}
	}

	if err := <-errCh; err != nil {
		classified := agent.Classify(err)
		slog.Error("chat: stream failed",
			"session_id", turn.sessionID,
			"kind", classified.Kind,
			"error", err,
		)
		s.metrics.ProviderErrors.WithLabelValues(string(classified.Kind)).Inc()
		status = "classified_error"
		if !disconnected {
			// A classified model error travels as ordinary token content;
			// the error chunk type is reserved for emitter-level failures.
			assistant.WriteString(classified.UserMessage)
			_ = emit(StreamChunk{Token: classified.UserMessage, Type: chunkTypeToken})
		}
	}

	if !disconnected {
		_ = emit(StreamChunk{Type: chunkTypeDone})
	}

	// Persist and name only after the producer side has fully drained. A
	// disconnected client still gets its partial turn recorded; this request
	// is the last writer for the session either way.
	bgCtx := context.WithoutCancel(c.Request().Context())
	s.persistAssistantTurn(bgCtx, turn, assistant.String())
	s.nameConversationAsync(bgCtx, turn)

	s.metrics.ChatRequests.WithLabelValues("stream", status).Inc()
	s.metrics.StreamDuration.Observe(time.Since(start).Seconds())
	return nil
}

// Models handles GET /chat/models.
func (s *ChatService) Models(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.Catalog())
}

func (s *ChatService) persistAssistantTurn(ctx context.Context, turn *chatTurn, content string) {
	if turn.sessionID == "" || content == "" {
		return
	}
	assistantTurn := store.Turn{Role: store.RoleAssistant, Content: content}
	if _, err := s.store.AppendTurns(ctx, turn.sessionID, turn.req.AgentID, []store.Turn{assistantTurn}); err != nil {
		slog.Warn("chat: assistant turn append failed", "session_id", turn.sessionID, "error", err)
	}
}

// nameConversationAsync fires the best-effort namer after the response. It
// must never affect the outcome of the chat turn it follows.
func (s *ChatService) nameConversationAsync(ctx context.Context, turn *chatTurn) {
	if turn.sessionID == "" {
		return
	}
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("namer goroutine panic", "session_id", turn.sessionID, "panic", r)
			}
		}()
		s.namer.MaybeName(bgCtx, turn.sessionID, turn.req.AgentID)
	}()
}

// clientError maps pipeline errors to transport errors.
func (s *ChatService) clientError(err error) error {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return echo.NewHTTPError(http.StatusBadRequest, validation.Detail)
	}
	if errors.Is(err, agent.ErrAgentNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	slog.Error("chat: request preparation failed", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
