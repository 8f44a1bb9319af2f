package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func (rt *Router) realtimeRoutes(r chi.Router) {
	r.Get("/events", rt.wrap(rt.handleEventsInfo))
	r.Get("/connect", rt.wrap(rt.handleConnect))
}

func (rt *Router) handleEventsInfo(w http.ResponseWriter, _ *http.Request) error {
	stats := domain.ConnectionStats{}
	if rt.deps.Events != nil {
		stats = rt.deps.Events.Stats()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events":      domain.EventTypes(),
		"connections": stats,
	})
	return nil
}

func (rt *Router) handleConnect(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.WebSocket == nil {
		return errNotConfigured("websocket")
	}
	rt.deps.WebSocket.ServeHTTP(w, r)
	return nil
}
