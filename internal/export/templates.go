package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"showcase/api/internal/views"
)

//go:embed templates/*.html
var templateFS embed.FS

var sheetTemplate = template.Must(template.New("project.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).ParseFS(templateFS, "templates/project.html"))

// TemplateData holds data for the project sheet.
type TemplateData struct {
	Details     views.Details
	GeneratedAt time.Time
	SiteName    string
}

func RenderProjectHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := sheetTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
