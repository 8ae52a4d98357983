package handlers

import (
	"net/http"

	"github.com/xelth-com/eckclaims/internal/websocket"
)

// serveJobEvents upgrades to a websocket that streams job changes
func (r *Router) serveJobEvents(w http.ResponseWriter, req *http.Request) {
	if r.Hub == nil {
		respondError(w, http.StatusServiceUnavailable, "Live events are disabled")
		return
	}
	websocket.ServeWs(r.Hub, actorOf(req).Username, w, req)
}
