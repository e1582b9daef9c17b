// Package handler contains the HTTP request handlers: thin glue between the
// routes and the service layer, plus HTML page rendering.
package handler

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

// pageNames lists every content template. Each is parsed together with
// base.html so pages share the layout via {{define "content"}} blocks.
var pageNames = []string{
	"index",
	"register",
	"login",
	"invalid_credentials",
	"create_message",
	"message_created",
	"message",
	"messages",
}

// Renderer holds the parsed page templates.
//
// Templates are parsed once at startup (expensive) and executed per request
// (cheap). Each page gets its own *template.Template because every page
// defines a "content" block with the same name — parsing them all into one
// tree would make the last definition win.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses all page templates from templateDir.
func NewRenderer(templateDir string, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render executes the named page with the given data and writes it with the
// given status. Execution failures after the header is sent can only be
// logged.
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("unknown template", slog.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}
