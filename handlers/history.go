// ABOUTME: Race history and attendance statistics handlers
// ABOUTME: History and statistics are fetched concurrently for the history page

package handlers

import (
	"net/http"

	"github.com/markalston/acreditaciones-portal/views"
)

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.render(w, r, views.History, "Mi Historial", nil, nil, errorFlash(msgUserLoadFailed))
		return
	}
	h.render(w, r, views.History, "Mi Historial", user, h.portal.HistoryPage(r.Context(), user, token))
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.render(w, r, views.Statistics, "Estadísticas", nil, nil, errorFlash(msgUserLoadFailed))
		return
	}
	h.render(w, r, views.Statistics, "Estadísticas", user, h.portal.Statistics(r.Context(), user, token).Value)
}

func (h *Handler) APIHistory(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.writeError(w, msgUnauthenticated, http.StatusUnauthorized)
		return
	}
	h.writeData(w, h.portal.HistoryPage(r.Context(), user, token))
}
