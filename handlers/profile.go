// ABOUTME: Profile view, edit and password change handlers
// ABOUTME: Successful updates redirect back to the profile with a flash message

package handlers

import (
	"net/http"
	"strings"

	"github.com/markalston/acreditaciones-portal/models"
	"github.com/markalston/acreditaciones-portal/views"
)

const (
	msgProfileLoadFailed   = "Error al cargar perfil del usuario"
	msgProfileUpdated      = "Perfil actualizado correctamente"
	msgProfileUpdateFailed = "Error al actualizar perfil"
	msgPasswordMismatch    = "Las contraseñas no coinciden"
	msgPasswordChanged     = "Contraseña cambiada correctamente"
	msgPasswordFailed      = "Error al cambiar contraseña"
)

// editableFields are the profile form fields forwarded to the API.
var editableFields = []string{"name", "email", "phone"}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, _ := h.currentUser(w, r)
	if user == nil {
		h.render(w, r, views.Profile, "Mi Perfil", nil, nil, errorFlash(msgProfileLoadFailed))
		return
	}
	h.render(w, r, views.Profile, "Mi Perfil", user, nil)
}

func (h *Handler) EditProfilePage(w http.ResponseWriter, r *http.Request) {
	user, _ := h.currentUser(w, r)
	if user == nil {
		h.redirect(w, r, "/profile", models.FlashError, msgProfileLoadFailed)
		return
	}
	h.render(w, r, views.ProfileEdit, "Editar Perfil", user, nil)
}

func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.redirect(w, r, "/profile", models.FlashError, msgProfileLoadFailed)
		return
	}

	if err := h.portal.UpdateProfile(r.Context(), user, token, profileChanges(r)); err != nil {
		h.render(w, r, views.ProfileEdit, "Editar Perfil", user, nil, errorFlash(msgProfileUpdateFailed))
		return
	}

	h.redirect(w, r, "/profile", models.FlashSuccess, msgProfileUpdated)
}

// profileChanges collects non-empty form fields. The notifications checkbox
// is always sent since an unchecked box is absent from the form.
func profileChanges(r *http.Request) map[string]string {
	changes := make(map[string]string, len(editableFields)+1)
	for _, field := range editableFields {
		if v := strings.TrimSpace(r.PostFormValue(field)); v != "" {
			changes[field] = v
		}
	}

	changes["notifications"] = "false"
	if r.PostFormValue("notifications") != "" {
		changes["notifications"] = "true"
	}
	return changes
}

func (h *Handler) ChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	user, _ := h.currentUser(w, r)
	if user == nil {
		h.redirect(w, r, "/profile", models.FlashError, msgProfileLoadFailed)
		return
	}
	h.render(w, r, views.ChangePassword, "Cambiar Contraseña", user, nil)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, token := h.currentUser(w, r)
	if user == nil {
		h.redirect(w, r, "/profile", models.FlashError, msgProfileLoadFailed)
		return
	}

	req := models.ChangePasswordRequest{
		CurrentPassword: r.PostFormValue("current_password"),
		NewPassword:     r.PostFormValue("new_password"),
	}
	if req.NewPassword != r.PostFormValue("confirm_password") {
		h.render(w, r, views.ChangePassword, "Cambiar Contraseña", user, nil, errorFlash(msgPasswordMismatch))
		return
	}

	if err := h.portal.ChangePassword(r.Context(), token, req); err != nil {
		h.render(w, r, views.ChangePassword, "Cambiar Contraseña", user, nil, errorFlash(msgPasswordFailed))
		return
	}

	h.redirect(w, r, "/profile", models.FlashSuccess, msgPasswordChanged)
}
