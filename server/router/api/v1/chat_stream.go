package v1

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

const (
	chunkTypeToken = "token"
	chunkTypeDone  = "done"
	chunkTypeError = "error"
)

// StreamChunk is one unit of the streaming wire protocol.
type StreamChunk struct {
	Token     string  `json:"token"`
	Type      string  `json:"type"`
	MessageID string  `json:"message_id"`
	ToolName  *string `json:"tool_name"`
	SessionID string  `json:"session_id,omitempty"`
}

// sseWriter frames stream chunks as server-sent events. It guarantees the
// terminal invariant of the protocol: exactly one done chunk per stream,
// no frames after it.
type sseWriter struct {
	w        http.ResponseWriter
	flusher  http.Flusher
	finished bool
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

// WriteChunk frames and flushes one chunk. Chunks after the terminal chunk
// are dropped. A marshalling failure inside the emitter is reported to the
// client as an error-typed frame; it is distinct from a classified model
// error, which travels as ordinary token content.
func (s *sseWriter) WriteChunk(chunk StreamChunk) error {
	if s.finished {
		return nil
	}
	if chunk.Type == chunkTypeDone {
		s.finished = true
	}

	payload, err := json.Marshal(chunk)
	if err != nil {
		payload = []byte(`{"token":"","type":"error","message_id":"` + chunk.MessageID + `","tool_name":null}`)
	}

	if _, err := s.w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
		return errors.Wrap(err, "write sse frame")
	}
	s.flusher.Flush()
	return nil
}
