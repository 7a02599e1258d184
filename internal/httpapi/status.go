package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/beni69/csengo/internal/audio"
)

type statusData struct {
	Name string
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	render(w, "status.html", statusData{Name: h.player.NowPlaying().Name})
}

// statusSSE streams a status.html fragment every time NowPlaying
// changes, as a Server-Sent Events feed.
func (h *handlers) statusSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	last := audio.NowPlaying{}

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	changed := make(chan audio.NowPlaying, 1)
	errc := make(chan error, 1)
	wait := func(last audio.NowPlaying) {
		np, err := h.player.NowPlayingStream(ctx, last)
		if err != nil {
			errc <- err
			return
		}
		changed <- np
	}
	go wait(last)

	for {
		select {
		case <-ctx.Done():
			return
		case <-errc:
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case np := <-changed:
			last = np

			var buf bytes.Buffer
			if err := tmpl.ExecuteTemplate(&buf, "status.html", statusData{Name: np.Name}); err != nil {
				return
			}

			fmt.Fprintf(w, "data: %s\n\n", strings.ReplaceAll(buf.String(), "\n", " "))
			flusher.Flush()

			go wait(last)
		}
	}
}

// statusRealtime blocks until NowPlaying next changes from its value
// at request time, then replies with the updated fragment and an
// HX-Trigger header so htmx's hx-trigger="realtime" loop re-fires.
func (h *handlers) statusRealtime(w http.ResponseWriter, r *http.Request) {
	last := h.player.NowPlaying()
	np, err := h.player.NowPlayingStream(r.Context(), last)
	if err != nil {
		return
	}

	w.Header().Set("HX-Trigger", "realtime")
	render(w, "status.html", statusData{Name: np.Name})
}
