// ABOUTME: Connection test pages for checking the accreditation API from a deployed portal
// ABOUTME: Registered only when diagnostics are enabled; answers JSON or HTML depending on the client

package handlers

import (
	"net/http"
	"strings"

	"github.com/markalston/acreditaciones-portal/middleware"
	"github.com/markalston/acreditaciones-portal/models"
	"github.com/markalston/acreditaciones-portal/services"
	"github.com/markalston/acreditaciones-portal/views"
)

const diagnosticsTitle = "Test de Conexión API"

type diagnosticsPage struct {
	BaseURL      string
	HasTestToken bool
	Report       *services.DiagnosticReport
}

func (h *Handler) TestIndex(w http.ResponseWriter, r *http.Request) {
	h.respondDiagnostics(w, r, nil)
}

func (h *Handler) TestConnectivity(w http.ResponseWriter, r *http.Request) {
	report := singleReport(h.diagnostics.Connectivity(r.Context()))
	h.respondDiagnostics(w, r, &report)
}

// TestLogin keeps the issued token in the session for TestEndpoints.
func (h *Handler) TestLogin(w http.ResponseWriter, r *http.Request) {
	result := h.diagnostics.Login(r.Context(),
		strings.TrimSpace(r.PostFormValue("dni")),
		r.PostFormValue("password"),
	)
	if result.Success {
		if err := h.scope(w, r).SetTestToken(r.Context(), result.Token); err != nil {
			h.writeError(w, internalErrorMsg, http.StatusInternalServerError)
			return
		}
	}

	report := singleReport(result)
	h.respondDiagnostics(w, r, &report)
}

func (h *Handler) TestEndpoints(w http.ResponseWriter, r *http.Request) {
	report := h.diagnostics.Endpoints(r.Context(), h.scope(w, r).TestToken(r.Context()))
	h.respondDiagnostics(w, r, &report)
}

func (h *Handler) TestAll(w http.ResponseWriter, r *http.Request) {
	report := h.diagnostics.Run(r.Context())
	h.respondDiagnostics(w, r, &report)
}

// TestQR shows a code for a fixed sample user so scanners can be checked.
func (h *Handler) TestQR(w http.ResponseWriter, r *http.Request) {
	qr := h.qr.TestQR()
	if middleware.WantsJSON(r) {
		h.writeData(w, qr)
		return
	}
	h.render(w, r, views.QR, "QR de prueba", nil, qr)
}

func (h *Handler) TestClear(w http.ResponseWriter, r *http.Request) {
	if err := h.scope(w, r).ClearTestToken(r.Context()); err != nil {
		h.redirect(w, r, "/test", models.FlashError, internalErrorMsg)
		return
	}
	h.redirect(w, r, "/test", models.FlashSuccess, "Sesión de pruebas limpiada")
}

func (h *Handler) respondDiagnostics(w http.ResponseWriter, r *http.Request, report *services.DiagnosticReport) {
	if middleware.WantsJSON(r) {
		if report == nil {
			h.writeData(w, map[string]string{"api_base_url": h.diagnostics.BaseURL()})
			return
		}
		h.writeJSON(w, http.StatusOK, report)
		return
	}

	h.render(w, r, views.Diagnostics, diagnosticsTitle, nil, diagnosticsPage{
		BaseURL:      h.diagnostics.BaseURL(),
		HasTestToken: h.scope(w, r).TestToken(r.Context()) != "",
		Report:       report,
	})
}

func singleReport(result services.ProbeResult) services.DiagnosticReport {
	report := services.DiagnosticReport{
		Success: result.Success,
		Message: result.Message,
		Results: []services.ProbeResult{result},
		Summary: services.Summary{Total: 1},
	}
	if result.Success {
		report.Summary.Successful = 1
	} else {
		report.Summary.Failed = 1
	}
	return report
}
