package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gwasupload/internal/logging"
)

// eventKeepAlive is how often an idle event stream sends a comment line so
// proxies do not close it.
const eventKeepAlive = 15 * time.Second

// handleEvents streams validity changes of a session via Server-Sent Events.
// The first event is the current state. The stream ends with a "closed"
// event when the session is closed or evicted.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	updates, unsubscribe, err := s.service.Subscribe(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	logger := logging.FromContext(r.Context())

	keepAlive := time.NewTicker(eventKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case v, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				rc.Flush()
				return
			}
			data, err := json.Marshal(v)
			if err != nil {
				logger.Warn("encode validity event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: validity\ndata: %s\n\n", data)
			if err := rc.Flush(); err != nil {
				logger.Debug("event stream flush failed", "error", err)
				return
			}

		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			if err := rc.Flush(); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}
