package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/univio-api/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateData is the union of fields any template may use.
type TemplateData struct {
	FirstName          string
	Code               string
	ExpiresInMinutes   int
	InstitutionalEmail string
}

var subjects = map[string]string{
	domain.TemplateVerifyInstitutional:      "Verify Your Student Email - UniVio",
	domain.TemplateVerifyPersonal:           "Verify Your Personal Email - UniVio",
	domain.TemplateWelcome:                  "Welcome to UniVio - Your Transfer Journey Begins!",
	domain.TemplateDualVerificationComplete: "Both Emails Verified - UniVio Account Ready!",
	domain.TemplatePasswordReset:            "Reset Your Password - UniVio",
}

// Renderer turns a template id and data into subject and HTML body.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every known template against the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(subjects))}
	for id := range subjects {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+id+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", id, err)
		}
		r.pages[id] = t
	}
	return r, nil
}

func (r *Renderer) Render(templateID, to string, data TemplateData) (domain.Notification, error) {
	t, ok := r.pages[templateID]
	if !ok {
		return domain.Notification{}, fmt.Errorf("unknown template %q: %w", templateID, domain.ErrBadRequest)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return domain.Notification{}, fmt.Errorf("render %s: %w", templateID, err)
	}
	return domain.Notification{
		TemplateID: templateID,
		To:         to,
		Subject:    subjects[templateID],
		Body:       buf.String(),
	}, nil
}
