// ABOUTME: Response helpers shared by the portal middleware
// ABOUTME: Writes the {success:false,message} envelope and detects JSON clients

package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// writeJSONError writes the failure envelope used by the JSON routes.
func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{
		Success: false,
		Message: message,
	})
}

// WantsJSON reports whether the client expects a JSON answer rather than a
// page: /api routes, XHR calls and explicit JSON Accept headers.
func WantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// writeError answers JSON clients with the envelope and browsers with plain text.
func writeError(w http.ResponseWriter, r *http.Request, message string, code int) {
	if WantsJSON(r) {
		writeJSONError(w, message, code)
		return
	}
	http.Error(w, message, code)
}
