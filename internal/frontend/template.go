package frontend

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed views
var assetsFS embed.FS

const viewsPattern = "views/*.html"

type Template struct {
	templates *template.Template
}

func newTemplate() *Template {
	return &Template{
		templates: template.Must(template.New("").Funcs(templateFuncs).ParseFS(assetsFS, viewsPattern)),
	}
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

var templateFuncs = template.FuncMap{
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"date": func(t time.Time) string {
		return t.Format("Jan 02, 2006")
	},
	// names stored before sanitising may still carry '?' or '#'
	"pathEscape": url.PathEscape,
}
