package v1

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/linhvu2695/aiven/ai/llm"
)

// ChatRequest is the canonical in-memory form of a chat submission,
// regardless of which body shape carried it.
type ChatRequest struct {
	Message    string
	AgentID    string
	SessionID  string
	Attachment *llm.Attachment
}

// ValidationError marks a request the client must fix. It is surfaced as
// HTTP 400 before any model invocation or persistence happens.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func validationErrorf(detail string) error {
	return &ValidationError{Detail: detail}
}

// chatMessage is the encoded message field: either a bare string or an
// envelope carrying role and content.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatJSONBody struct {
	Message   json.RawMessage `json:"message"`
	Agent     string          `json:"agent"`
	SessionID string          `json:"session_id"`
}

// parseChatRequest normalizes a transport-level submission into a
// ChatRequest. Supported bodies are application/json and
// multipart/form-data (the latter is used when an attachment is present).
func parseChatRequest(c echo.Context) (*ChatRequest, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	switch {
	case strings.HasPrefix(mediaType, echo.MIMEApplicationJSON):
		return parseJSONRequest(c)
	case strings.HasPrefix(mediaType, echo.MIMEMultipartForm):
		return parseMultipartRequest(c)
	default:
		return nil, validationErrorf("unsupported content type: " + contentType)
	}
}

func parseJSONRequest(c echo.Context) (*ChatRequest, error) {
	var body chatJSONBody
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return nil, validationErrorf("invalid request body")
	}

	message, err := decodeMessageField(body.Message)
	if err != nil {
		return nil, err
	}
	return buildChatRequest(message, body.Agent, body.SessionID, nil)
}

func parseMultipartRequest(c echo.Context) (*ChatRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, validationErrorf("invalid multipart form")
	}

	rawMessage := c.FormValue("message")
	if rawMessage == "" {
		return nil, validationErrorf("message is required")
	}

	// The multipart message field carries an encoded {role, content} object.
	var envelope chatMessage
	if err := json.Unmarshal([]byte(rawMessage), &envelope); err != nil {
		return nil, validationErrorf("message field is not valid JSON")
	}

	attachment, err := firstAttachment(form.File["files"])
	if err != nil {
		return nil, err
	}

	return buildChatRequest(envelope.Content, c.FormValue("agent"), c.FormValue("session_id"), attachment)
}

// decodeMessageField accepts either a plain JSON string or a {role, content}
// envelope.
func decodeMessageField(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", validationErrorf("message is required")
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil
	}

	var envelope chatMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", validationErrorf("message must be a string or a {role, content} object")
	}
	return envelope.Content, nil
}

func buildChatRequest(message, agentID, sessionID string, attachment *llm.Attachment) (*ChatRequest, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, validationErrorf("message is required")
	}
	if agentID == "" {
		return nil, validationErrorf("agent is required")
	}
	return &ChatRequest{
		Message:    message,
		AgentID:    agentID,
		SessionID:  sessionID,
		Attachment: attachment,
	}, nil
}

// firstAttachment normalizes the first non-empty uploaded file. Additional
// files are ignored: a turn carries at most one attachment into the
// reasoning loop.
func firstAttachment(files []*multipart.FileHeader) (*llm.Attachment, error) {
	for _, header := range files {
		if header.Size == 0 {
			continue
		}

		file, err := header.Open()
		if err != nil {
			return nil, validationErrorf("unable to read uploaded file")
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			return nil, validationErrorf("unable to read uploaded file")
		}
		if len(data) == 0 {
			continue
		}

		mimeType := sniffMimeType(header, data)
		return &llm.Attachment{
			Category: llm.CategoryForMime(mimeType),
			MimeType: mimeType,
			Data:     data,
		}, nil
	}
	return nil, nil
}

// sniffMimeType resolves the attachment mime type from the declared header,
// then the file extension, then content sniffing. An undetectable type
// defaults to the generic binary type.
func sniffMimeType(header *multipart.FileHeader, data []byte) string {
	if declared := header.Header.Get("Content-Type"); declared != "" && declared != "application/octet-stream" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil {
			return parsed
		}
	}
	if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
		if parsed, _, err := mime.ParseMediaType(byExt); err == nil {
			return parsed
		}
	}
	if sniffed := http.DetectContentType(data); sniffed != "" {
		if parsed, _, err := mime.ParseMediaType(sniffed); err == nil {
			return parsed
		}
	}
	return "application/octet-stream"
}
