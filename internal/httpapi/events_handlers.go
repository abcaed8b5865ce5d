package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobyaari-engine/internal/events"
)

const sseKeepAlive = 25 * time.Second

type EventsHandler struct {
	Hub *events.Hub
}

// ServeSSE streams hub events. ?types=refresh_finished,category_done narrows
// the stream; a comment line is sent periodically so proxies keep it open.
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "streaming unsupported")
		return
	}

	var types []string
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.Hub.Subscribe(types...)
	defer h.Hub.Unsubscribe(ch)

	id := 0
	send := func(data string) {
		id++
		fmt.Fprintf(w, "id: %d\nevent: message\ndata: %s\n\n", id, data)
		flusher.Flush()
	}

	fmt.Fprint(w, "retry: 3000\n\n")
	send(events.MakeEvent(RequestIDFrom(r.Context()), "ping", nil))

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			send(msg)
		}
	}
}
