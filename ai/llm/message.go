// Package llm provides the model-provider layer: message types, the provider
// registry and an OpenAI-protocol client used for every configured provider.
package llm

import (
	"encoding/base64"
	"strings"
)

// Message represents a chat message.
type Message struct {
	Role       string // system, user, assistant, tool
	Content    string
	Attachment *Attachment
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolDescriptor represents a function/tool available to the model.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  string // JSON Schema string
}

// Completion represents the model response including potential tool calls.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// ToolCall represents a request to call a tool.
type ToolCall struct {
	ID       string
	Type     string
	Function FunctionCall
}

// FunctionCall represents the function details.
type FunctionCall struct {
	Name      string
	Arguments string
}

// AttachmentCategory is the coarse media category of an attachment.
type AttachmentCategory string

const (
	AttachmentImage       AttachmentCategory = "image"
	AttachmentAudio       AttachmentCategory = "audio"
	AttachmentVideo       AttachmentCategory = "video"
	AttachmentText        AttachmentCategory = "text"
	AttachmentDocument    AttachmentCategory = "document"
	AttachmentApplication AttachmentCategory = "application"
	AttachmentFile        AttachmentCategory = "file"
)

// Attachment is one media payload carried alongside a user turn. At most one
// attachment per turn reaches the model.
type Attachment struct {
	Category AttachmentCategory
	MimeType string
	Data     []byte
}

// Base64 returns the attachment payload base64-encoded.
func (a *Attachment) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// DataURI returns the attachment as a data URI suitable for image parts.
func (a *Attachment) DataURI() string {
	return "data:" + a.MimeType + ";base64," + a.Base64()
}

// CategoryForMime maps a mime type to an attachment category. The mapping is
// total: unknown media types fall back to the generic file category.
func CategoryForMime(mimeType string) AttachmentCategory {
	major := strings.ToLower(mimeType)
	if idx := strings.Index(major, "/"); idx >= 0 {
		major = major[:idx]
	}
	switch major {
	case "image":
		return AttachmentImage
	case "audio":
		return AttachmentAudio
	case "video":
		return AttachmentVideo
	case "text":
		return AttachmentText
	case "application":
		switch strings.ToLower(mimeType) {
		case "application/pdf", "application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
			return AttachmentDocument
		}
		return AttachmentApplication
	default:
		return AttachmentFile
	}
}

// Helper for creating system prompts.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Helper for creating assistant messages.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
