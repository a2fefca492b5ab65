package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"adminarea/internal/locals"
	"adminarea/internal/models"
	"adminarea/internal/sessions"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.SyncAdmins(context.Background(), db))
	_, err = models.CreateAdmin(context.Background(), db, "root", "hunter2")
	require.NoError(t, err)
	return db
}

// newRouter mounts a sub-router at /admin the way the admin area is used.
func newRouter(l *locals.Locals, routes func(chi.Router)) http.Handler {
	sub := chi.NewRouter()
	sub.Use(Locals(l))
	routes(sub)
	root := chi.NewRouter()
	root.Mount("/admin", sub)
	return root
}

func TestAuthenticateUser(t *testing.T) {
	db := setupTestDB(t)
	l := &locals.Locals{DB: db, Sessions: sessions.NewStore(sessions.Options{Secret: "s"})}

	var reached *models.Admin
	h := newRouter(l, func(r chi.Router) {
		r.With(AuthenticateUser(db)).Post("/", func(w http.ResponseWriter, r *http.Request) {
			reached, _ = locals.Admin(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
	})

	t.Run("valid JSON credentials continue the chain", func(t *testing.T) {
		reached = nil
		req := httptest.NewRequest(http.MethodPost, "/admin/", strings.NewReader(`{"login":"root","password":"hunter2"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		require.NotNil(t, reached)
		assert.Equal(t, "root", reached.Login)
	})

	t.Run("wrong JSON credentials halt with 401", func(t *testing.T) {
		reached = nil
		req := httptest.NewRequest(http.MethodPost, "/admin/", strings.NewReader(`{"login":"root","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, reached)
	})

	t.Run("wrong form credentials redirect to the login form", func(t *testing.T) {
		reached = nil
		req := httptest.NewRequest(http.MethodPost, "/admin/", strings.NewReader("login=root&password=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin/?error=invalid+login+or+password", w.Header().Get("Location"))
		assert.Nil(t, reached)
	})

	t.Run("valid form credentials continue the chain", func(t *testing.T) {
		reached = nil
		req := httptest.NewRequest(http.MethodPost, "/admin/", strings.NewReader("login=root&password=hunter2"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.NotNil(t, reached)
	})
}

func TestAdminOnly(t *testing.T) {
	db := setupTestDB(t)
	store := sessions.NewStore(sessions.Options{Secret: "s"})
	l := &locals.Locals{DB: db, Sessions: store}

	var reached *models.Admin
	h := newRouter(l, func(r chi.Router) {
		r.With(AdminOnly).Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
			reached, _ = locals.Admin(r.Context())
			w.WriteHeader(http.StatusOK)
		})
	})

	sessionFor := func(id uint) []*http.Cookie {
		sw := httptest.NewRecorder()
		require.NoError(t, store.SetAdminID(sw, httptest.NewRequest(http.MethodPost, "/", nil), id))
		return sw.Result().Cookies()
	}

	t.Run("no session redirects browsers", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin/", w.Header().Get("Location"))
	})

	t.Run("no session gives JSON clients 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("session of an existing admin passes", func(t *testing.T) {
		reached = nil
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		for _, c := range sessionFor(1) {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, reached)
		assert.Equal(t, "root", reached.Login)
	})

	t.Run("session of a deleted admin is dropped", func(t *testing.T) {
		ghost, err := models.CreateAdmin(context.Background(), db, "ghost", "pw")
		require.NoError(t, err)
		cookies := sessionFor(ghost.ID)
		require.NoError(t, db.Delete(&models.Admin{}, ghost.ID).Error)

		reached = nil
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin/", w.Header().Get("Location"))
		assert.Nil(t, reached)
		var cleared bool
		for _, c := range w.Result().Cookies() {
			if c.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared, "session cookie should be expired")
	})
}

func TestLocals_FixedBase(t *testing.T) {
	l := &locals.Locals{Base: "/backoffice"}
	var got string
	h := newRouter(l, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			got = locals.From(r.Context()).Base
		})
	})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/", nil))
	assert.Equal(t, "/backoffice", got)
	assert.Equal(t, "/backoffice", l.Base, "shared locals must not be mutated")
}
