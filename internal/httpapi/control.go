package httpapi

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// apiStop accepts any method, matching the original's "any" route: a
// stop button might fire from a plain <a> link as easily as a script.
func (h *handlers) apiStop(w http.ResponseWriter, r *http.Request) {
	h.player.Stop()
	log.Info().Msg("stop")
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) apiPlaytest(w http.ResponseWriter, r *http.Request) {
	if err := h.player.Playtest(); err != nil {
		replyErr(w, r, "", "playtest failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
