package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// SSEWriter writes server-sent events with increasing ids. Pipeline steps
// report from several goroutines, so writes are serialized.
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	nextID  int
}

// NewSSEWriter sets the event-stream headers on w.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends data as JSON under the given event name.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.nextID, event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError ends the stream with an error event.
func (s *SSEWriter) WriteError(message string) {
	_ = s.WriteEvent("error", map[string]string{"error": message})
}

// WriteComplete ends the stream with the run status and its summary.
func (s *SSEWriter) WriteComplete(status string, summary any) {
	_ = s.WriteEvent("complete", map[string]any{
		"status":  status,
		"summary": summary,
	})
}
