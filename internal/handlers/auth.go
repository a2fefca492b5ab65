package handlers

import (
	"log"
	"net/http"

	"github.com/flosch/pongo2/v6"

	"adminarea/internal/locals"
	"adminarea/internal/models"
	"adminarea/internal/respond"
)

// AuthGet отображает форму входа.
func AuthGet(w http.ResponseWriter, r *http.Request) {
	l := locals.From(r.Context())
	if _, ok := l.Sessions.AdminID(r); ok {
		http.Redirect(w, r, l.Base+"/dashboard", http.StatusFound)
		return
	}
	render(w, r, http.StatusOK, "login.html", pongo2.Context{
		"title": "Sign in",
		"error": r.URL.Query().Get("error"),
	})
}

// AuthPost вызывается после middleware.AuthenticateUser и открывает сессию.
func AuthPost(w http.ResponseWriter, r *http.Request) {
	l := locals.From(r.Context())
	admin, ok := locals.Admin(r.Context())
	if !ok {
		respond.Error(w, http.StatusInternalServerError, "authentication did not run")
		return
	}

	if err := l.Sessions.SetAdminID(w, r, admin.ID); err != nil {
		log.Printf("auth: session save error: %v", err)
		if respond.WantsJSON(r) {
			respond.Error(w, http.StatusInternalServerError, "session error")
			return
		}
		http.Redirect(w, r, l.Base+"/?error=session+error", http.StatusFound)
		return
	}
	if err := models.TouchLogin(r.Context(), l.DB, admin.ID); err != nil {
		log.Printf("auth: last login for admin %d: %v", admin.ID, err)
	}

	if respond.WantsJSON(r) {
		respond.JSON(w, http.StatusOK, map[string]any{"ok": true, "id": admin.ID, "login": admin.Login})
		return
	}
	http.Redirect(w, r, l.Base+"/dashboard", http.StatusFound)
}

// Logout сбрасывает сессию и возвращает на форму входа.
func Logout(w http.ResponseWriter, r *http.Request) {
	l := locals.From(r.Context())
	if err := l.Sessions.Clear(w, r); err != nil {
		respond.Error(w, http.StatusInternalServerError, "logout failed")
		return
	}
	if respond.WantsJSON(r) {
		respond.JSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	http.Redirect(w, r, l.Base+"/", http.StatusFound)
}
