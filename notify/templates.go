package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates renders message bodies by template name.
type Templates struct {
	set *template.Template
}

// DefaultTemplates parses the embedded templates. It panics on a malformed
// template since they ship with the binary.
func DefaultTemplates() *Templates {
	return &Templates{set: template.Must(template.ParseFS(templateFS, "templates/*.html"))}
}

// Render executes the template called name + ".html" with data.
func (t *Templates) Render(name string, data map[string]any) (string, error) {
	tmpl := t.set.Lookup(name + ".html")
	if tmpl == nil {
		return "", fmt.Errorf("unknown mail template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render mail template %q: %w", name, err)
	}
	return buf.String(), nil
}
