// ABOUTME: Promotions page and JSON handlers
// ABOUTME: Promotions are shared by all users and fall back to sample offers

package handlers

import (
	"net/http"

	"github.com/markalston/acreditaciones-portal/views"
)

func (h *Handler) Promotions(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	promotions := h.portal.Promotions(r.Context(), token).Value

	if user == nil {
		h.render(w, r, views.Promotions, "Promociones", nil, promotions, errorFlash(msgUserLoadFailed))
		return
	}
	h.render(w, r, views.Promotions, "Promociones", user, promotions)
}

func (h *Handler) APIPromotions(w http.ResponseWriter, r *http.Request) {
	token := h.auth(w, r).Token(r.Context())
	h.writeData(w, h.portal.Promotions(r.Context(), token).Value)
}
