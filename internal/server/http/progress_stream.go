package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// sseQueryInterval is how often the tracker is polled.
	sseQueryInterval = 2 * time.Second
	// sseMaxDuration is the maximum time an SSE stream may remain open.
	sseMaxDuration = 4 * time.Hour
)

// sseEvent represents an event sent via SSE.
type sseEvent struct {
	EventType string       `json:"event_type"`
	Run       *runResponse `json:"run,omitempty"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

// streamProgress handles GET /api/v1/run/progress (SSE). It ends once the
// run completed.
func (s *Server) streamProgress(w http.ResponseWriter, r *http.Request) {
	if s.run == nil {
		writeError(w, http.StatusNotFound, "no run in progress")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	log := s.logger.With().Str("correlation_id", correlationIDFromContext(ctx)).Logger()
	log.Debug().Msg("progress stream opened")

	current := s.runToResponse(s.run.Snapshot())
	if current.Completed {
		sendSSEEvent(w, flusher, sseEvent{
			EventType: "completed",
			Run:       &current,
			Message:   "run is complete",
			Timestamp: time.Now(),
		})
		return
	}

	sendSSEEvent(w, flusher, sseEvent{
		EventType: "stream_started",
		Run:       &current,
		Message:   "progress stream started",
		Timestamp: time.Now(),
	})

	deadlineTimer := time.NewTimer(sseMaxDuration)
	defer deadlineTimer.Stop()
	ticker := time.NewTicker(s.sseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("progress stream closed by client")
			return

		case <-deadlineTimer.C:
			sendSSEEvent(w, flusher, sseEvent{
				EventType: "timeout",
				Message:   "stream max duration exceeded",
				Timestamp: time.Now(),
			})
			return

		case <-ticker.C:
			current := s.runToResponse(s.run.Snapshot())
			if current.Completed {
				sendSSEEvent(w, flusher, sseEvent{
					EventType: "completed",
					Run:       &current,
					Message:   "run is complete",
					Timestamp: time.Now(),
				})
				return
			}
			sendSSEEvent(w, flusher, sseEvent{
				EventType: "progress_update",
				Run:       &current,
				Message:   "run in progress",
				Timestamp: time.Now(),
			})
		}
	}
}

// sendSSEEvent writes a single SSE event to the response writer.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event sseEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, data)
	flusher.Flush()
}
