// ABOUTME: Connectivity diagnostics against the accreditation API
// ABOUTME: Probes the public endpoint, a test login and the protected user endpoints

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/markalston/acreditaciones-portal/models"
)

const (
	connectivityPath = "/promotions/active"
	noTestTokenMsg   = "No hay token de autenticación. Ejecuta primero el test de login."
)

// ProtectedEndpoint is a user endpoint probed with the test token.
type ProtectedEndpoint struct {
	Path        string
	Description string
}

// ProtectedEndpoints are probed in this order.
var ProtectedEndpoints = []ProtectedEndpoint{
	{"/user/profile", "Perfil de Usuario"},
	{"/user/status", "Estado de Acreditación"},
	{"/user/team", "Información del Equipo"},
	{"/user/history", "Historial de Participaciones"},
}

// ProbeResult is the outcome of one diagnostic call. StatusCode is 0 when no
// HTTP response was received.
type ProbeResult struct {
	Name        string          `json:"name"`
	Endpoint    string          `json:"endpoint,omitempty"`
	Description string          `json:"description,omitempty"`
	Success     bool            `json:"success"`
	StatusCode  int             `json:"status_code"`
	Message     string          `json:"message"`
	Duration    time.Duration   `json:"duration_ns"`
	Data        json.RawMessage `json:"data,omitempty"`
	Token       string          `json:"token,omitempty"`
}

// Summary counts probe outcomes.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// DiagnosticReport groups probe results. Success is true only when every
// probe succeeded.
type DiagnosticReport struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Results []ProbeResult `json:"results"`
	Summary Summary       `json:"summary"`
}

// Diagnostics runs probes with the shared API client.
type Diagnostics struct {
	api      *APIClient
	dni      string
	password string
}

// NewDiagnostics uses dni and password for the login probe.
func NewDiagnostics(api *APIClient, dni, password string) *Diagnostics {
	return &Diagnostics{api: api, dni: dni, password: password}
}

func (d *Diagnostics) BaseURL() string {
	return d.api.BaseURL()
}

// Connectivity calls the public promotions endpoint.
func (d *Diagnostics) Connectivity(ctx context.Context) ProbeResult {
	start := time.Now()
	body, err := d.api.Get(ctx, connectivityPath)

	result := probe("Conectividad Básica", connectivityPath, start, body, err)
	if result.Success {
		result.Message = "Conectividad OK"
	}
	return result
}

// Login authenticates with dni and password, or the configured test
// credentials when they are empty. The issued token is returned in Token.
func (d *Diagnostics) Login(ctx context.Context, dni, password string) ProbeResult {
	if dni == "" {
		dni = d.dni
	}
	if password == "" {
		password = d.password
	}

	start := time.Now()
	body, err := d.api.Post(ctx, "/auth/login", models.LoginRequest{DNI: dni, Password: password})

	result := probe("Login", "/auth/login", start, body, err)
	if !result.Success {
		return result
	}

	var envelope struct {
		Success bool `json:"success"`
	}
	_ = json.Unmarshal(body, &envelope)
	result.Token = stringField(body, "token")

	if !envelope.Success || result.Token == "" {
		result.Success = false
		result.Message = "Error en login"
		return result
	}
	result.Message = "Login exitoso"
	return result
}

// Endpoints probes every protected endpoint with token.
func (d *Diagnostics) Endpoints(ctx context.Context, token string) DiagnosticReport {
	if token == "" {
		return DiagnosticReport{Message: noTestTokenMsg, Results: []ProbeResult{}}
	}

	results := make([]ProbeResult, 0, len(ProtectedEndpoints))
	for _, ep := range ProtectedEndpoints {
		start := time.Now()
		body, err := d.api.AuthenticatedRequest(ctx, http.MethodGet, ep.Path, nil, token)

		result := probe("Endpoint "+ep.Path, ep.Path, start, body, err)
		result.Description = ep.Description
		results = append(results, result)
	}

	report := newReport(results)
	report.Message = fmt.Sprintf("Endpoints protegidos: %d/%d exitosos", report.Summary.Successful, report.Summary.Total)
	return report
}

// Run executes the full suite: connectivity, login and, when login yields a
// token, the protected endpoints.
func (d *Diagnostics) Run(ctx context.Context) DiagnosticReport {
	results := []ProbeResult{d.Connectivity(ctx)}

	login := d.Login(ctx, "", "")
	results = append(results, login)

	if login.Success {
		results = append(results, d.Endpoints(ctx, login.Token).Results...)
	}

	report := newReport(results)
	report.Message = fmt.Sprintf("Test completo: %d/%d exitosos", report.Summary.Successful, report.Summary.Total)

	slog.Info("Diagnostics finished",
		"base_url", d.api.BaseURL(),
		"successful", report.Summary.Successful,
		"total", report.Summary.Total,
	)
	return report
}

func probe(name, endpoint string, start time.Time, body json.RawMessage, err error) ProbeResult {
	result := ProbeResult{
		Name:     name,
		Endpoint: endpoint,
		Duration: time.Since(start),
	}

	if err != nil {
		result.StatusCode = statusOf(err)
		if result.StatusCode == 0 {
			result.Message = "Error de conexión: " + err.Error()
		} else {
			result.Message = "Error: " + ErrorMessage(err, http.StatusText(result.StatusCode))
		}
		return result
	}

	result.Success = true
	result.StatusCode = http.StatusOK
	result.Message = "OK"
	result.Data = body
	return result
}

func newReport(results []ProbeResult) DiagnosticReport {
	report := DiagnosticReport{Results: results}
	for _, r := range results {
		report.Summary.Total++
		if r.Success {
			report.Summary.Successful++
		}
	}
	report.Summary.Failed = report.Summary.Total - report.Summary.Successful
	report.Success = report.Summary.Total > 0 && report.Summary.Failed == 0
	return report
}
