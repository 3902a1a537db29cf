// ABOUTME: HTML rendering for portal pages
// ABOUTME: Parses embedded templates once and renders each page inside the shared layout

package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/markalston/acreditaciones-portal/models"
)

//go:embed templates/*.html
var files embed.FS

// Page names.
const (
	Login           = "login"
	ValidateEmail   = "validate_email"
	RecoverPassword = "recover_password"
	Dashboard       = "dashboard"
	QR              = "qr"
	Profile         = "profile"
	ProfileEdit     = "profile_edit"
	ChangePassword  = "change_password"
	Team            = "team"
	TeamMembers     = "team_members"
	History         = "history"
	Statistics      = "statistics"
	Promotions      = "promotions"
	Diagnostics     = "diagnostics"
)

var pages = []string{
	Login, ValidateEmail, RecoverPassword, Dashboard, QR, Profile, ProfileEdit,
	ChangePassword, Team, TeamMembers, History, Statistics, Promotions, Diagnostics,
}

// Page is what every template receives. Data holds the page-specific value.
type Page struct {
	Title     string
	User      *models.User
	Flashes   []models.Flash
	CSRFToken string
	Data      any
}

// Renderer renders a named page.
type Renderer interface {
	Render(w io.Writer, name string, page Page) error
}

// Templates is the html/template Renderer.
type Templates struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"statusLabel": statusLabel,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"raw": func(b []byte) string { return strings.Trim(string(b), `"`) },
}

// New parses all page templates.
func New() (*Templates, error) {
	t := &Templates{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

// Render executes into a buffer first so a failing template never leaves a
// half-written page.
func (t *Templates) Render(w io.Writer, name string, page Page) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func statusLabel(status string) string {
	switch status {
	case "approved", "acreditado", "active":
		return "Acreditado"
	case "pending":
		return "Pendiente"
	case "rejected":
		return "Rechazado"
	case "unknown", "":
		return "Desconocido"
	default:
		return status
	}
}
