// Package views renders the admin area's pongo2 templates, which are
// compiled into the binary.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var templateFS embed.FS

// Dir is the fixed template directory inside the embedded filesystem.
const Dir = "templates"

// Engine holds the parsed template set.
type Engine struct {
	set *pongo2.TemplateSet
}

// New parses every embedded template so that a broken template fails at
// startup instead of on first request.
func New() (*Engine, error) {
	sub, err := fs.Sub(templateFS, Dir)
	if err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	set := pongo2.NewSet("adminarea", fsLoader{fsys: sub})

	names, err := fs.Glob(sub, "*.html")
	if err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	for _, name := range names {
		if _, err := set.FromCache(name); err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", name, err)
		}
	}
	return &Engine{set: set}, nil
}

// Render executes the named template and writes it with the given status.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data pongo2.Context) error {
	tmpl, err := e.set.FromCache(name)
	if err != nil {
		return fmt.Errorf("views: %s: %w", name, err)
	}
	out, err := tmpl.ExecuteBytes(data)
	if err != nil {
		return fmt.Errorf("views: execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(out)
	return err
}

// fsLoader serves templates from an fs.FS; all names are relative to its root.
type fsLoader struct {
	fsys fs.FS
}

func (l fsLoader) Abs(_, name string) string {
	return path.Clean(name)
}

func (l fsLoader) Get(name string) (io.Reader, error) {
	b, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}
