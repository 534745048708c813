package site

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strings"
	"time"
)

//go:embed templates/index.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html.tmpl").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"join":  strings.Join,
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}).ParseFS(templateFS, "templates/index.html.tmpl"))

// Form submission states shown under the contact form.
const (
	StatusNone    = ""
	StatusSuccess = "success"
	StatusError   = "error"
)

type pageData struct {
	Portfolio *Portfolio
	Sections  []string
	Status    string
	Year      int
}

// Render writes the portfolio page. Sections ids appear in the navigation bar
// in the given order.
func Render(w io.Writer, p *Portfolio, sections []string, status string) error {
	return pageTemplate.Execute(w, pageData{
		Portfolio: p,
		Sections:  sections,
		Status:    status,
		Year:      time.Now().Year(),
	})
}

// RenderString is Render into a string.
func RenderString(p *Portfolio, sections []string, status string) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, p, sections, status); err != nil {
		return "", err
	}
	return buf.String(), nil
}
