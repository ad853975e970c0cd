package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/barterhub/barterhub/internal/domain/notification"
)

const streamKeepAlive = 25 * time.Second

// sseEndpoint streams trade updates for every trade the caller takes part in.
func (s *Server) sseEndpoint(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}
	client := notification.NewSSEClient(callerID(r.Context()).String())
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(client.ClientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case msg, open := <-client.MessageChan:
			if !open || msg == nil {
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("id: " + msg.ID + "\nevent: " + msg.Event + "\ndata: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
