package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/flosch/pongo2/v6"

	"adminarea/internal/locals"
	"adminarea/internal/models"
	"adminarea/internal/registry"
	"adminarea/internal/respond"
)

// render добавляет общие для всех страниц значения и рендерит шаблон.
func render(w http.ResponseWriter, r *http.Request, status int, name string, data pongo2.Context) {
	l := locals.From(r.Context())
	if data == nil {
		data = pongo2.Context{}
	}
	data["base"] = l.Base
	data["year"] = time.Now().Year()
	if id, ok := l.Sessions.AdminID(r); ok {
		data["admin_id"] = id
	}
	if err := l.Views.Render(w, status, name, data); err != nil {
		log.Printf("handlers: %v", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// modelError переводит ошибки моделей и реестра в HTTP-статусы.
func modelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnknownTable), errors.Is(err, models.ErrRecordNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrUnknownColumn), errors.Is(err, models.ErrInvalidValue):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("handlers: %v", err)
		respond.Error(w, http.StatusInternalServerError, "database error")
	}
}

// cell — значение ячейки для HTML-таблицы
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(time.RFC3339)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// idString превращает значение из JSON или формы в строку первичного ключа.
func idString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
