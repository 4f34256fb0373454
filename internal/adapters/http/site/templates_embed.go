package site

import (
	"embed"
	"html/template"
)

//go:embed templates/*.gohtml
var templateSource embed.FS

var templates = template.Must(template.ParseFS(templateSource, "templates/*.gohtml"))
