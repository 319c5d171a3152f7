package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// StreamPatches handles GET /live/sessions/{id}/patches
// Streams the session's patches as Server-Sent Events until the browser
// disconnects or the session closes.
func (h *LiveHandler) StreamPatches(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	detach := s.Attach()
	defer detach()

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.Loop.Done():
			fmt.Fprint(w, "event: close\ndata: {}\n\n")
			_ = rc.Flush()
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
		case p := <-s.Page.Patches():
			data, err := json.Marshal(p)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: patch\ndata: %s\n\n", data)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
