// ABOUTME: Login, email validation, password recovery and logout handlers
// ABOUTME: Pages follow post/redirect/get with flash messages; the JSON login answers with the envelope

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/markalston/acreditaciones-portal/models"
	"github.com/markalston/acreditaciones-portal/services"
	"github.com/markalston/acreditaciones-portal/views"
)

const (
	msgLoginRejected   = "DNI o contraseña incorrectos"
	msgLoginFailed     = "Error al iniciar sesión. Intente nuevamente."
	msgLoginOK         = "Login exitoso"
	msgEmailValidated  = "Email validado correctamente"
	msgEmailRejected   = "Error en la validación del email"
	msgEmailFailed     = "Error al validar email. Intente nuevamente."
	msgRecoverySent    = "Se ha enviado un enlace de recuperación a su email"
	msgRecoveryFailed  = "Error al enviar email de recuperación"
	msgLoggedOut       = "Sesión cerrada correctamente"
	msgInvalidRequest  = "Solicitud inválida"
	msgUnauthenticated = "Usuario no autenticado"
)

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.auth(w, r).IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, views.Login, "Iniciar Sesión", nil, nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	dni := strings.TrimSpace(r.PostFormValue("dni"))
	password := r.PostFormValue("password")

	if msg, invalid := validationMessage(services.ValidateLogin(dni, password)); invalid {
		h.render(w, r, views.Login, "Iniciar Sesión", nil, nil, errorFlash(msg))
		return
	}

	if _, err := h.auth(w, r).Authenticate(r.Context(), dni, password); err != nil {
		msg := msgLoginFailed
		if isUnauthorized(err) {
			msg = msgLoginRejected
		}
		h.render(w, r, views.Login, "Iniciar Sesión", nil, nil, errorFlash(msg))
		return
	}

	h.redirect(w, r, "/", models.FlashSuccess, msgLoginOK)
}

func (h *Handler) ValidateEmailPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, views.ValidateEmail, "Validar Email", nil, nil)
}

func (h *Handler) ValidateEmail(w http.ResponseWriter, r *http.Request) {
	dni := strings.TrimSpace(r.PostFormValue("dni"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	if msg, invalid := validationMessage(services.ValidateEmailForm(dni, email, password, r.PostFormValue("confirm_password"))); invalid {
		h.render(w, r, views.ValidateEmail, "Validar Email", nil, nil, errorFlash(msg))
		return
	}

	if _, err := h.auth(w, r).ValidateEmail(r.Context(), dni, email, password); err != nil {
		msg := msgEmailFailed
		if isUnauthorized(err) {
			msg = msgEmailRejected
		}
		h.render(w, r, views.ValidateEmail, "Validar Email", nil, nil, errorFlash(msg))
		return
	}

	h.redirect(w, r, "/", models.FlashSuccess, msgEmailValidated)
}

func (h *Handler) RecoverPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, views.RecoverPassword, "Recuperar Contraseña", nil, nil)
}

func (h *Handler) RecoverPassword(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))

	if msg, invalid := validationMessage(services.ValidateEmailAddress(email)); invalid {
		h.render(w, r, views.RecoverPassword, "Recuperar Contraseña", nil, nil, errorFlash(msg))
		return
	}

	if err := h.auth(w, r).RecoverPassword(r.Context(), email); err != nil {
		h.render(w, r, views.RecoverPassword, "Recuperar Contraseña", nil, nil, errorFlash(msgRecoveryFailed))
		return
	}

	h.redirect(w, r, "/login", models.FlashSuccess, msgRecoverySent)
}

// Logout always succeeds locally, whatever the API answers.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth(w, r).Logout(r.Context())
	h.redirect(w, r, "/login", models.FlashSuccess, msgLoggedOut)
}

// APILogin authenticates a JSON client and stores the token in its session.
func (h *Handler) APILogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, msgInvalidRequest, http.StatusBadRequest)
		return
	}

	req.DNI = strings.TrimSpace(req.DNI)
	if msg, invalid := validationMessage(services.ValidateLogin(req.DNI, req.Password)); invalid {
		h.writeError(w, msg, http.StatusBadRequest)
		return
	}

	result, err := h.auth(w, r).Authenticate(r.Context(), req.DNI, req.Password)
	if err != nil {
		if isUnauthorized(err) {
			h.writeError(w, msgLoginRejected, http.StatusUnauthorized)
			return
		}
		slog.Error("API login failed", "error", err)
		h.writeError(w, internalErrorMsg, http.StatusInternalServerError)
		return
	}

	h.writeData(w, result)
}
