package httpadapter

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"
)

// progressMessage is the wire shape of one push on a progress socket.
type progressMessage struct {
	Status  string `json:"status"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (rt *Router) progressSocket() http.Handler {
	return websocket.Handler(rt.serveProgress)
}

// serveProgress relays hub events for one resume id over a websocket. The
// server closes the connection right after the terminal event; when the
// client disconnects first, the deferred cancel drops the observer from
// tracking and no further push is attempted.
func (rt *Router) serveProgress(conn *websocket.Conn) {
	defer conn.Close()

	resumeID := strings.TrimPrefix(conn.Request().URL.Path, "/ws/resume/")
	if resumeID == "" || strings.Contains(resumeID, "/") {
		return
	}

	ctx := conn.Request().Context()
	events, cancel := rt.notifier.Watch(ctx, resumeID)
	defer cancel()

	for event := range events {
		msg := progressMessage{
			Status:  string(event.Status),
			Summary: event.Summary,
			Error:   event.Error,
		}
		if err := websocket.JSON.Send(conn, msg); err != nil {
			slog.Debug("progress_socket_send_failed",
				"request_id", requestIDFromContext(ctx),
				"resume_id", resumeID,
				"error", err,
			)
			return
		}
	}
	// Channel closed: the terminal event (if any) is already on the wire.
}
