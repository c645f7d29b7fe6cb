package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStreamingHTTPClientHasNoWholeRequestTimeout(t *testing.T) {
	require.Equal(t, 60*time.Second, newHTTPClient().Timeout)
	require.Zero(t, newStreamingHTTPClient().Timeout)
}

func TestConvertMessagesRolesAndTools(t *testing.T) {
	out := convertMessages([]Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "", ToolCalls: []ToolCall{
			{ID: "call-1", Type: "function", Function: FunctionCall{Name: "current_time", Arguments: "{}"}},
		}},
		{Role: "tool", Content: "noon", ToolCallID: "call-1"},
	})

	require.Len(t, out, 4)
	require.Equal(t, "system", out[0].Role)
	require.Equal(t, "user", out[1].Role)
	require.Equal(t, "assistant", out[2].Role)
	require.Len(t, out[2].ToolCalls, 1)
	require.Equal(t, "current_time", out[2].ToolCalls[0].Function.Name)
	require.Equal(t, "tool", out[3].Role)
	require.Equal(t, "call-1", out[3].ToolCallID)
}

func TestConvertMessagesImageAttachment(t *testing.T) {
	out := convertMessages([]Message{{
		Role:    "user",
		Content: "what is in this picture",
		Attachment: &Attachment{
			MimeType: "image/png",
			Category: AttachmentImage,
			Data:     []byte{0x89, 0x50},
		},
	}})

	require.Len(t, out, 1)
	require.Empty(t, out[0].Content)
	require.Len(t, out[0].MultiContent, 2)
	require.Equal(t, "what is in this picture", out[0].MultiContent[0].Text)
	require.Contains(t, out[0].MultiContent[1].ImageURL.URL, "data:image/png;base64,")
}

func TestConvertMessagesNonImageAttachmentInlined(t *testing.T) {
	out := convertMessages([]Message{{
		Role:    "user",
		Content: "summarize this",
		Attachment: &Attachment{
			MimeType: "application/pdf",
			Category: AttachmentDocument,
			Data:     []byte("%PDF"),
		},
	}})

	require.Len(t, out, 1)
	require.Contains(t, out[0].Content, "[attached file: application/pdf]")
}
