package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/job"
)

// Stream event payloads. Non-terminal snapshots become progress events;
// the stream ends with exactly one completed or error event.
type progressEvent struct {
	Step    string `json:"step"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

type completedEvent struct {
	DownloadURL string `json:"download_url"`
}

type errorEvent struct {
	Message string `json:"message"`
}

// eventFor maps a job snapshot to its stream event name and payload.
func eventFor(j *job.Job) (string, any) {
	switch j.Status {
	case job.StatusCompleted:
		return "completed", completedEvent{DownloadURL: j.DownloadURL}
	case job.StatusFailed:
		return "error", errorEvent{Message: j.Error}
	default:
		return "progress", progressEvent{
			Step:    j.Stage,
			Percent: int(j.Progress * 100),
			Message: j.Message,
		}
	}
}

// handleStream serves job progress as named server-sent events. Each
// snapshot becomes an "event: progress" frame; the stream closes after
// a terminal "completed" or "error" frame. Unchanged snapshots are
// suppressed by the watcher, so idle jobs produce no traffic beyond
// the initial state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.cfg.Jobs.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeInternal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	writeEvent := func(name string, payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	terminal := false
	for snapshot := range s.cfg.Watcher.Watch(r.Context(), id) {
		name, payload := eventFor(snapshot)
		terminal = snapshot.Status.Terminal()
		if !writeEvent(name, payload) {
			return
		}
	}

	// The watcher closes without a terminal snapshot when the job was
	// evicted mid-stream. Tell the client instead of going silent.
	if !terminal && r.Context().Err() == nil {
		writeEvent("error", errorEvent{Message: "Job not found"})
	}
}

var upgrader = websocket.Upgrader{
	// The API is same-origin in production and proxied; origin policy
	// is enforced upstream.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsMessage wraps a stream event for the websocket transport, which
// has no frame naming of its own.
type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// handleWebSocket serves the same named event stream over a websocket
// for clients that cannot consume SSE.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.cfg.Jobs.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Drain client frames so close handshakes are processed.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	terminal := false
	for snapshot := range s.cfg.Watcher.Watch(r.Context(), id) {
		name, payload := eventFor(snapshot)
		terminal = snapshot.Status.Terminal()
		if err := conn.WriteJSON(wsMessage{Event: name, Data: payload}); err != nil {
			return
		}
	}
	if !terminal && r.Context().Err() == nil {
		_ = conn.WriteJSON(wsMessage{Event: "error", Data: errorEvent{Message: "Job not found"}})
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}
