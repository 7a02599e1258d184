package httpapi

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcMap = template.FuncMap{
	"formatLocalDateTime": formatLocalDateTime,
}

var tmpl = template.Must(template.New("root").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"))

// render executes the named template (a file under templates/, e.g.
// "tasks.html") with data and writes it to w. On failure it logs and
// replies 500 — a template execution error means the server has a bug,
// never bad client input.
func render(w http.ResponseWriter, name string, data any) {
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Str("template", name).Err(err).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
