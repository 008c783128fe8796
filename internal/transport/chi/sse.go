package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var errNoFlusher = errors.New("response writer does not support flushing")

// sseWriter writes Server-Sent Events, one "message" event per chunk.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// newSSEWriter sends the event-stream headers and a connection chunk.
// The server write deadline is lifted for the lifetime of the stream.
func newSSEWriter(w http.ResponseWriter, id string) (*sseWriter, error) {
	if _, ok := w.(http.Flusher); !ok {
		return nil, errNoFlusher
	}
	rc := http.NewResponseController(w)
	// not every writer supports deadlines (e.g. httptest)
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s := &sseWriter{w: w, rc: rc}
	if err := s.send(StreamChunk{ID: id, Type: chunkContent, Metadata: map[string]any{"connected": true}}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sseWriter) send(c StreamChunk) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode chunk: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "id: %s\nevent: message\ndata: %s\n\n", c.ID, data); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush chunk: %w", err)
	}
	return nil
}
