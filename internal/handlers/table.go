package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/flosch/pongo2/v6"
	"github.com/go-chi/chi/v5"

	"adminarea/internal/locals"
	"adminarea/internal/models"
	"adminarea/internal/respond"
)

const (
	maxBodySize    int64 = 1 << 20
	defaultPerPage       = 50
	maxPerPage           = 500
)

// maxPage: (page-1)*perPage должно помещаться в 32-битный int
const maxPage = math.MaxInt32 / maxPerPage

type tableRow struct {
	ID    string
	Cells []string
}

func lookupTable(w http.ResponseWriter, r *http.Request) (models.Model, string, bool) {
	name := chi.URLParam(r, "tableName")
	m, err := locals.From(r.Context()).Models.Lookup(name)
	if err != nil {
		modelError(w, err)
		return nil, name, false
	}
	return m, name, true
}

func pageParams(r *http.Request) (page, perPage int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	perPage, err = strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// decodeRecord читает JSON-объект или urlencoded/multipart форму.
// Числа из JSON остаются json.Number, чтобы большие ключи не округлялись.
func decodeRecord(w http.ResponseWriter, r *http.Request) (models.Record, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	rec := models.Record{}
	if respond.IsJSONBody(r) {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return rec, nil
	}
	if err := r.ParseMultipartForm(maxBodySize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			rec[k] = vs[0]
		}
	}
	return rec, nil
}

// recordID: сначала ?id=, затем первичный ключ из тела, затем поле "id"
func recordID(r *http.Request, m models.Model, rec models.Record) string {
	if id := r.URL.Query().Get("id"); id != "" {
		return id
	}
	if v, ok := rec[m.PrimaryKey()]; ok {
		return idString(v)
	}
	return idString(rec["id"])
}

// TableDataGet: одна страница строк таблицы
func TableDataGet(w http.ResponseWriter, r *http.Request) {
	m, name, ok := lookupTable(w, r)
	if !ok {
		return
	}
	page, perPage := pageParams(r)

	total, err := m.Count(r.Context())
	if err != nil {
		modelError(w, err)
		return
	}
	rows, err := m.List(r.Context(), models.Page{Limit: perPage, Offset: (page - 1) * perPage})
	if err != nil {
		modelError(w, err)
		return
	}

	if respond.WantsJSON(r) {
		respond.JSON(w, http.StatusOK, map[string]any{
			"table":       name,
			"primary_key": m.PrimaryKey(),
			"columns":     m.Columns(),
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"rows":        rows,
		})
		return
	}

	cols := m.Columns()
	view := make([]tableRow, 0, len(rows))
	for _, rec := range rows {
		tr := tableRow{ID: cell(rec[m.PrimaryKey()]), Cells: make([]string, 0, len(cols))}
		for _, c := range cols {
			tr.Cells = append(tr.Cells, cell(rec[c]))
		}
		view = append(view, tr)
	}
	data := pongo2.Context{
		"title":       name,
		"name":        name,
		"total":       total,
		"columns":     cols,
		"inputs":      m.InputColumns(),
		"primary_key": m.PrimaryKey(),
		"rows":        view,
		"page":        page,
		"per_page":    perPage,
	}
	if page > 1 {
		data["prev_page"] = page - 1
	}
	if int64(page*perPage) < total {
		data["next_page"] = page + 1
	}
	render(w, r, http.StatusOK, "table.html", data)
}

// TableDataPost создаёт строку.
func TableDataPost(w http.ResponseWriter, r *http.Request) {
	m, name, ok := lookupTable(w, r)
	if !ok {
		return
	}
	rec, err := decodeRecord(w, r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := m.Create(r.Context(), rec)
	if err != nil {
		modelError(w, err)
		return
	}
	if respond.WantsJSON(r) {
		respond.JSON(w, http.StatusCreated, created)
		return
	}
	http.Redirect(w, r, locals.From(r.Context()).Base+"/dashboard/"+name, http.StatusSeeOther)
}

// TableDataPut обновляет строку по ?id= или первичному ключу из тела.
func TableDataPut(w http.ResponseWriter, r *http.Request) {
	m, _, ok := lookupTable(w, r)
	if !ok {
		return
	}
	rec, err := decodeRecord(w, r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	id := recordID(r, m, rec)
	if id == "" {
		respond.Error(w, http.StatusBadRequest, "missing "+m.PrimaryKey())
		return
	}

	updated, err := m.Update(r.Context(), id, rec)
	if err != nil {
		modelError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, updated)
}

// TableDataDelete удаляет строку по ?id= или id из тела.
func TableDataDelete(w http.ResponseWriter, r *http.Request) {
	m, _, ok := lookupTable(w, r)
	if !ok {
		return
	}
	rec := models.Record{}
	if r.URL.Query().Get("id") == "" {
		var err error
		if rec, err = decodeRecord(w, r); err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	id := recordID(r, m, rec)
	if id == "" {
		respond.Error(w, http.StatusBadRequest, "missing "+m.PrimaryKey())
		return
	}

	if err := m.Delete(r.Context(), id); err != nil {
		modelError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": id})
}
