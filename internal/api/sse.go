package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vibecast/internal/progress"
)

func bytesReader(raw json.RawMessage) *bytes.Reader {
	return bytes.NewReader(raw)
}

// handleProgress streams a task's events as server-sent events. The stream
// ends when the observer emits stream_end or the client disconnects.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.observer.Subscribe(taskID)
	defer s.observer.Unsubscribe(sub)

	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			writeSSE(w, progress.Event{
				Type:      progress.EventKeepalive,
				TaskID:    taskID,
				Timestamp: time.Now().UTC(),
			})
			flusher.Flush()
		case event, open := <-sub.Events():
			if !open {
				return
			}
			writeSSE(w, event)
			flusher.Flush()
			if event.Type == progress.EventStreamEnd {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, event progress.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"type":%q,"error":"encode failure"}`, event.Type))
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
}
