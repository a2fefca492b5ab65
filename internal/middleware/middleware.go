package middleware

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"

	"gorm.io/gorm"

	"adminarea/internal/locals"
	"adminarea/internal/models"
	"adminarea/internal/respond"
)

// Locals кладёт в каждый запрос копию l с вычисленным базовым путём.
func Locals(l *locals.Locals) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lc := *l
			if lc.Base == "" {
				lc.Base = locals.MountBase(r.Context(), r.URL.Path)
			}
			next.ServeHTTP(w, r.WithContext(locals.With(r.Context(), &lc)))
		})
	}
}

// AdminOnly пропускает запрос только с сессией существующего админа
// и кладёт админа в контекст. Сессия удалённого админа сбрасывается.
// Позволяет писать: g.Use(middleware.AdminOnly)
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := locals.From(r.Context())
		if id, ok := l.Sessions.AdminID(r); ok {
			admin, err := models.FindAdmin(r.Context(), l.DB, id)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(locals.WithAdmin(r.Context(), admin)))
				return
			case errors.Is(err, models.ErrRecordNotFound):
				if err := l.Sessions.Clear(w, r); err != nil {
					log.Printf("auth: %v", err)
				}
			default:
				log.Printf("auth: %v", err)
				respond.Error(w, http.StatusInternalServerError, "database error")
				return
			}
		}

		if respond.WantsJSON(r) {
			respond.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		http.Redirect(w, r, l.Base+"/", http.StatusFound)
	})
}

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// AuthenticateUser проверяет логин и пароль по таблице admins.
// При успехе админ кладётся в контекст, иначе цепочка обрывается здесь.
func AuthenticateUser(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			asJSON := respond.WantsJSON(r)
			fail := func(code int, msg string) {
				if asJSON {
					respond.Error(w, code, msg)
					return
				}
				base := locals.From(r.Context()).Base
				http.Redirect(w, r, base+"/?error="+url.QueryEscape(msg), http.StatusFound)
			}

			var c credentials
			if respond.IsJSONBody(r) {
				if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
					fail(http.StatusBadRequest, "malformed credentials")
					return
				}
			} else {
				if err := r.ParseForm(); err != nil {
					fail(http.StatusBadRequest, "malformed form")
					return
				}
				c.Login = r.PostFormValue("login")
				c.Password = r.PostFormValue("password")
			}
			if c.Login == "" || c.Password == "" {
				fail(http.StatusBadRequest, "login and password are required")
				return
			}

			admin, err := models.Authenticate(r.Context(), db, c.Login, c.Password)
			if errors.Is(err, models.ErrInvalidCredentials) {
				fail(http.StatusUnauthorized, "invalid login or password")
				return
			}
			if err != nil {
				log.Printf("auth: %v", err)
				fail(http.StatusInternalServerError, "database error")
				return
			}
			next.ServeHTTP(w, r.WithContext(locals.WithAdmin(r.Context(), admin)))
		})
	}
}
