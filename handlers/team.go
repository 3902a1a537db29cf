// ABOUTME: Team page, member list and team JSON handlers
// ABOUTME: Team data is cached per team and falls back to an empty team

package handlers

import (
	"net/http"

	"github.com/markalston/acreditaciones-portal/views"
)

func (h *Handler) Team(w http.ResponseWriter, r *http.Request) {
	h.renderTeam(w, r, views.Team, "Mi Equipo")
}

func (h *Handler) TeamMembers(w http.ResponseWriter, r *http.Request) {
	h.renderTeam(w, r, views.TeamMembers, "Miembros del Equipo")
}

func (h *Handler) renderTeam(w http.ResponseWriter, r *http.Request, page, title string) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.render(w, r, page, title, nil, nil, errorFlash(msgUserLoadFailed))
		return
	}
	h.render(w, r, page, title, user, h.portal.Team(r.Context(), user, token).Value)
}

func (h *Handler) APITeam(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.writeError(w, msgUnauthenticated, http.StatusUnauthorized)
		return
	}
	h.writeData(w, h.portal.Team(r.Context(), user, token).Value)
}
