// ABOUTME: Declarative route table for portal pages and JSON endpoints
// ABOUTME: Marks which routes skip the authentication gate and which use the login rate limit

package handlers

import "net/http"

// Route defines an endpoint with its HTTP method and handler.
type Route struct {
	Method  string           // HTTP method (GET, POST, etc.)
	Path    string           // URL path (e.g., "/profile/edit")
	Handler http.HandlerFunc // Handler function
	Public  bool             // served without the authentication gate
	Login   bool             // credential submission, limited by the stricter quota
}

// Pattern returns the ServeMux pattern. "/" matches only the root.
func (r Route) Pattern() string {
	path := r.Path
	if path == "/" {
		path = "/{$}"
	}
	return r.Method + " " + path
}

// Routes returns all portal routes for registration.
func (h *Handler) Routes() []Route {
	routes := []Route{
		// Authentication
		{Method: http.MethodGet, Path: "/login", Handler: h.LoginPage, Public: true},
		{Method: http.MethodPost, Path: "/login", Handler: h.Login, Public: true, Login: true},
		{Method: http.MethodGet, Path: "/validate-email", Handler: h.ValidateEmailPage, Public: true},
		{Method: http.MethodPost, Path: "/validate-email", Handler: h.ValidateEmail, Public: true, Login: true},
		{Method: http.MethodGet, Path: "/recover-password", Handler: h.RecoverPasswordPage, Public: true},
		{Method: http.MethodPost, Path: "/recover-password", Handler: h.RecoverPassword, Public: true, Login: true},
		{Method: http.MethodGet, Path: "/logout", Handler: h.Logout, Public: true},
		{Method: http.MethodPost, Path: "/api/auth/login", Handler: h.APILogin, Public: true, Login: true},

		// Dashboard & QR
		{Method: http.MethodGet, Path: "/", Handler: h.Dashboard},
		{Method: http.MethodGet, Path: "/qr", Handler: h.QR},
		{Method: http.MethodGet, Path: "/api/user/status", Handler: h.APIStatus},
		{Method: http.MethodGet, Path: "/api/user/qr", Handler: h.APIQR},
		{Method: http.MethodPost, Path: "/api/qr/validate", Handler: h.APIValidateQR},

		// Profile
		{Method: http.MethodGet, Path: "/profile", Handler: h.Profile},
		{Method: http.MethodGet, Path: "/profile/edit", Handler: h.EditProfilePage},
		{Method: http.MethodPost, Path: "/profile/edit", Handler: h.EditProfile},
		{Method: http.MethodGet, Path: "/profile/change-password", Handler: h.ChangePasswordPage},
		{Method: http.MethodPost, Path: "/profile/change-password", Handler: h.ChangePassword},

		// Team
		{Method: http.MethodGet, Path: "/team", Handler: h.Team},
		{Method: http.MethodGet, Path: "/team/members", Handler: h.TeamMembers},
		{Method: http.MethodGet, Path: "/api/user/team", Handler: h.APITeam},

		// History
		{Method: http.MethodGet, Path: "/history", Handler: h.History},
		{Method: http.MethodGet, Path: "/history/statistics", Handler: h.Statistics},
		{Method: http.MethodGet, Path: "/api/user/history", Handler: h.APIHistory},

		// Promotions
		{Method: http.MethodGet, Path: "/promotions", Handler: h.Promotions},
		{Method: http.MethodGet, Path: "/api/user/promotions", Handler: h.APIPromotions},

		// Health
		{Method: http.MethodGet, Path: "/api/health", Handler: h.Health, Public: true},
	}

	if h.cfg.DiagnosticsEnabled {
		routes = append(routes,
			Route{Method: http.MethodGet, Path: "/test", Handler: h.TestIndex, Public: true},
			Route{Method: http.MethodGet, Path: "/test/connectivity", Handler: h.TestConnectivity, Public: true},
			Route{Method: http.MethodPost, Path: "/test/login", Handler: h.TestLogin, Public: true, Login: true},
			Route{Method: http.MethodGet, Path: "/test/endpoints", Handler: h.TestEndpoints, Public: true},
			Route{Method: http.MethodGet, Path: "/test/all", Handler: h.TestAll, Public: true},
			Route{Method: http.MethodGet, Path: "/test/qr", Handler: h.TestQR, Public: true},
			Route{Method: http.MethodGet, Path: "/test/clear", Handler: h.TestClear, Public: true},
		)
	}

	return routes
}
