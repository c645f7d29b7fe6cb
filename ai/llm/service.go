package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Client is the model client interface. One implementation serves every
// provider in the registry since they all speak the OpenAI protocol.
type Client interface {
	// Complete performs a synchronous chat call and returns the final content.
	Complete(ctx context.Context, messages []Message) (string, error)

	// CompleteWithTools performs a chat call with function calling support.
	CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDescriptor) (*Completion, error)

	// Stream performs a streaming chat call. Content deltas arrive on the
	// first channel; a terminal failure arrives on the second. Both channels
	// are closed when the stream is drained.
	Stream(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// Config represents model client configuration.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // request timeout in seconds (default: 120)
}

type client struct {
	api         *openai.Client
	streamAPI   *openai.Client
	provider    string
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewClient creates a client for one provider/model pair.
func NewClient(cfg Config) Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	// Streaming responses can legitimately outlive any fixed whole-request
	// timeout, so the streaming client bounds only connection setup and the
	// time to first header. The per-call context limits the total duration.
	streamConfig := openai.DefaultConfig(cfg.APIKey)
	streamConfig.BaseURL = clientConfig.BaseURL
	streamConfig.HTTPClient = newStreamingHTTPClient()

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &client{
		api:         openai.NewClientWithConfig(clientConfig),
		streamAPI:   openai.NewClientWithConfig(streamConfig),
		provider:    cfg.Provider,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     time.Duration(timeout) * time.Second,
	}
}

func (c *client) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	slog.Debug("llm.complete",
		"provider", c.provider,
		"model", c.model,
		"messages_count", len(messages),
	)

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    convertMessages(messages),
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapProviderError(c.provider, c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: c.provider, Model: c.model, Detail: "empty response from model"}
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *client) CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDescriptor) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	openaiTools := make([]openai.Tool, len(tools))
	for i, t := range tools {
		openaiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Parameters),
			},
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    convertMessages(messages),
	}
	if len(openaiTools) > 0 {
		req.Tools = openaiTools
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapProviderError(c.provider, c.model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: c.provider, Model: c.model, Detail: "empty response from model"}
	}

	choice := resp.Choices[0]
	completion := &Completion{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return completion, nil
}

func (c *client) Stream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	contentChan := make(chan string, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		req := openai.ChatCompletionRequest{
			Model:       c.model,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			Messages:    convertMessages(messages),
		}

		slog.Debug("llm.stream.start", "provider", c.provider, "model", c.model, "messages", len(messages))
		stream, err := c.streamAPI.CreateChatCompletionStream(ctx, req)
		if err != nil {
			select {
			case errChan <- wrapProviderError(c.provider, c.model, err):
			case <-ctx.Done():
			}
			return
		}
		defer func() { _ = stream.Close() }()

		chunkCount := 0
		for {
			resp, err := stream.Recv()
			if err != nil {
				if strings.Contains(err.Error(), "EOF") {
					slog.Debug("llm.stream.done", "provider", c.provider, "chunks", chunkCount)
					return
				}
				select {
				case errChan <- wrapProviderError(c.provider, c.model, err):
				case <-ctx.Done():
				}
				return
			}

			if len(resp.Choices) == 0 {
				continue
			}

			// Non-textual or empty fragments do not advance the stream.
			delta := resp.Choices[0].Delta.Content
			if delta != "" {
				chunkCount++
				select {
				case contentChan <- delta:
				case <-ctx.Done():
					slog.Warn("llm.stream.cancelled", "provider", c.provider, "chunks", chunkCount)
					return
				}
			}

			if resp.Choices[0].FinishReason != "" {
				slog.Debug("llm.stream.done",
					"provider", c.provider,
					"reason", resp.Choices[0].FinishReason,
					"chunks", chunkCount,
				)
				return
			}
		}
	}()

	return contentChan, errChan
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Content: m.Content}
		switch m.Role {
		case "system":
			msg.Role = openai.ChatMessageRoleSystem
		case "assistant":
			msg.Role = openai.ChatMessageRoleAssistant
		case "tool":
			msg.Role = openai.ChatMessageRoleTool
			msg.ToolCallID = m.ToolCallID
		default:
			msg.Role = openai.ChatMessageRoleUser
		}

		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolType(tc.Type),
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}

		// Image attachments ride as a multi-part user message with a data
		// URI part; other categories are described inline since the wire
		// protocol has no generic binary part.
		if m.Attachment != nil && m.Role == "user" {
			if m.Attachment.Category == AttachmentImage {
				msg.Content = ""
				msg.MultiContent = []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: m.Content},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: m.Attachment.DataURI(),
						},
					},
				}
			} else {
				msg.Content = m.Content + "\n\n[attached file: " + m.Attachment.MimeType + "]"
			}
		}

		out = append(out, msg)
	}
	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   60 * time.Second,
		Transport: newTransport(),
	}
}

// newStreamingHTTPClient has no whole-request timeout: the response body is
// read for as long as the model keeps producing tokens. Body reads are cut
// off by the request context instead.
func newStreamingHTTPClient() *http.Client {
	return &http.Client{
		Transport: newTransport(),
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
