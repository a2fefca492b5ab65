package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/flosch/pongo2/v6"

	"adminarea/internal/locals"
	"adminarea/internal/respond"
)

// TableSummary — одна строка дашборда.
type TableSummary struct {
	Name   string `json:"name"`
	Table  string `json:"table"`
	Exists bool   `json:"exists"`
	Rows   int64  `json:"rows"`
}

// DashboardGet: список зарегистрированных таблиц (HTML или JSON)
func DashboardGet(w http.ResponseWriter, r *http.Request) {
	l := locals.From(r.Context())

	tables := make([]TableSummary, 0, l.Models.Len())
	for _, name := range l.Models.Names() {
		m, err := l.Models.Lookup(name)
		if err != nil {
			modelError(w, err)
			return
		}
		ts := TableSummary{Name: name, Table: m.Table()}
		if ts.Exists, err = m.Exists(r.Context()); err != nil {
			modelError(w, err)
			return
		}
		if ts.Exists {
			if ts.Rows, err = m.Count(r.Context()); err != nil {
				modelError(w, err)
				return
			}
		}
		tables = append(tables, ts)
	}

	if respond.WantsJSON(r) {
		respond.JSON(w, http.StatusOK, map[string]any{"tables": tables})
		return
	}
	render(w, r, http.StatusOK, "dashboard.html", pongo2.Context{
		"title":  "Dashboard",
		"tables": tables,
	})
}

// DashboardPost создаёт (или мигрирует) таблицу зарегистрированной модели.
func DashboardPost(w http.ResponseWriter, r *http.Request) {
	l := locals.From(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var in struct {
		Table string `json:"table"`
	}
	if respond.IsJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid form: "+err.Error())
			return
		}
		in.Table = r.PostFormValue("table")
	}
	in.Table = strings.TrimSpace(in.Table)
	if in.Table == "" {
		respond.Error(w, http.StatusBadRequest, "field 'table' is required")
		return
	}

	m, err := l.Models.Lookup(in.Table)
	if err != nil {
		modelError(w, err)
		return
	}
	if err := m.Sync(r.Context()); err != nil {
		modelError(w, err)
		return
	}

	if respond.WantsJSON(r) {
		respond.JSON(w, http.StatusOK, map[string]any{"ok": true, "table": m.Table()})
		return
	}
	http.Redirect(w, r, l.Base+"/dashboard", http.StatusSeeOther)
}
