// ABOUTME: Dashboard, QR and QR validation handlers
// ABOUTME: Pages always render, using cached or default data when the API is down

package handlers

import (
	"errors"
	"net/http"

	"github.com/markalston/acreditaciones-portal/services"
	"github.com/markalston/acreditaciones-portal/views"
)

const msgUserLoadFailed = "Error al cargar datos del usuario"

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	data := h.portal.Dashboard(r.Context(), user, token)

	if user == nil {
		h.render(w, r, views.Dashboard, "Dashboard", nil, data, errorFlash(msgUserLoadFailed))
		return
	}
	h.render(w, r, views.Dashboard, "Dashboard", user, data)
}

func (h *Handler) QR(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.render(w, r, views.QR, "Mi QR", nil, nil, errorFlash(msgUserLoadFailed))
		return
	}

	qr := h.portal.QR(r.Context(), user, token)
	h.render(w, r, views.QR, "Mi QR", user, qr.Value)
}

func (h *Handler) APIStatus(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.writeError(w, msgUnauthenticated, http.StatusUnauthorized)
		return
	}
	h.writeData(w, h.portal.Status(r.Context(), user, token).Value)
}

func (h *Handler) APIQR(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.writeError(w, msgUnauthenticated, http.StatusUnauthorized)
		return
	}
	h.writeData(w, h.portal.QR(r.Context(), user, token).Value)
}

// APIValidateQR checks a scanned accreditation code.
func (h *Handler) APIValidateQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data string `json:"data"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Data == "" {
		h.writeError(w, msgInvalidRequest, http.StatusBadRequest)
		return
	}

	payload, err := h.qr.Validate(req.Data)
	if err != nil {
		msg := "Código QR inválido"
		if errors.Is(err, services.ErrQRExpired) {
			msg = "Código QR expirado"
		}
		h.writeError(w, msg, http.StatusUnprocessableEntity)
		return
	}
	h.writeData(w, payload)
}
