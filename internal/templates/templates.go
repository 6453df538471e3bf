// Package templates ships the HTML pages rendered by the handlers.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
)

const (
	BaseTemplate     = "base.html"
	PartialsTemplate = "partials.html"

	Index  = "index.html"
	Board  = "board.html"
	Thread = "thread.html"
)

//go:embed *.html
var files embed.FS

// Load parses every page together with the base layout and the partials.
func Load(funcs template.FuncMap) (map[string]*template.Template, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template)
	for _, e := range entries {
		name := e.Name()
		if path.Ext(name) != ".html" || name == BaseTemplate || name == PartialsTemplate {
			continue
		}
		tmpl, err := template.New(BaseTemplate).Funcs(funcs).ParseFS(files, BaseTemplate, PartialsTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// MustLoad is Load for startup code.
func MustLoad(funcs template.FuncMap) map[string]*template.Template {
	pages, err := Load(funcs)
	if err != nil {
		panic(err)
	}
	return pages
}
