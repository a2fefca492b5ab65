package views

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flosch/pongo2/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLogin(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	err = e.Render(w, http.StatusUnauthorized, "login.html", pongo2.Context{
		"title": "Sign in",
		"base":  "/admin",
		"error": "<bad>",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `action="/admin/"`)
	assert.Contains(t, body, "&lt;bad&gt;")
	assert.NotContains(t, body, "Log out")
}

type testRow struct {
	ID    string
	Cells []string
}

func TestRenderTable(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	err = e.Render(w, http.StatusOK, "table.html", pongo2.Context{
		"title":       "users",
		"base":        "/admin",
		"admin_id":    uint(1),
		"name":        "users",
		"total":       1,
		"columns":     []string{"id", "name"},
		"inputs":      []string{"name"},
		"primary_key": "id",
		"rows":        []testRow{{ID: "1", Cells: []string{"1", "Ann"}}},
		"page":        1,
		"per_page":    50,
	})
	require.NoError(t, err)

	body := w.Body.String()
	assert.Contains(t, body, "<td>Ann</td>")
	assert.Contains(t, body, `data-id="1" class="delete"`)
	assert.Contains(t, body, `data-id="1" class="edit"`)
	assert.Contains(t, body, `id="edit-form"`)
	assert.Contains(t, body, `data-col="name"`)
	assert.Contains(t, body, `method: "PUT"`)
	assert.Contains(t, body, "Log out")
}

func TestRenderUnknownTemplate(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	err = e.Render(httptest.NewRecorder(), http.StatusOK, "missing.html", nil)
	assert.Error(t, err)
}
