package kitchen

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/kds/internal/logger"
)

const DefaultKeepalive = 30 * time.Second

// SSEHandler streams the change feed as Server-Sent Events. A client first
// receives the current board, then one event per feed entry.
type SSEHandler struct {
	service   TicketService
	keepalive time.Duration
	logger    logger.Logger
}

func NewSSEHandler(service TicketService, keepalive time.Duration, log logger.Logger) *SSEHandler {
	if log == nil {
		log = logger.NewNoop()
	}
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	return &SSEHandler{
		service:   service,
		keepalive: keepalive,
		logger:    log.With("component", "sse"),
	}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, board, subscriberID := h.service.SubscribeBoard(r.Context())
	h.logger.Info("new SSE connection", "subscriber_id", subscriberID)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")

	if err := sendSSEEvent(w, "board", board); err != nil {
		h.logger.Error("failed to send initial board", "subscriber_id", subscriberID, "error", err)
		return
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "subscriber_id", subscriberID)
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case evt, ok := <-events:
			if !ok {
				h.logger.Info("feed closed, ending SSE stream", "subscriber_id", subscriberID)
				return
			}
			if err := sendSSEEvent(w, string(evt.Type), evt); err != nil {
				h.logger.Error("failed to send event", "subscriber_id", subscriberID, "error", err)
				return
			}
		}
	}
}

// sendSSEEvent writes payload as JSON, one "data:" line per line of output.
func sendSSEEvent(w http.ResponseWriter, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")

	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
