package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/arbml/masader-form/internal/schema"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the form templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Form writes the whole form page for p.
func (r *Renderer) Form(w io.Writer, s *schema.Schema, p Page) error {
	if err := r.tmpl.ExecuteTemplate(w, "form", buildView(s, p)); err != nil {
		return fmt.Errorf("rendering form: %w", err)
	}
	return nil
}
