// Package adminarea mounts a small administration UI onto a chi
// application: admin login, a table dashboard, and row editing for any
// gorm model handed to Configure.
//
//	app := adminarea.NewApp(chi.NewRouter())
//	area, err := adminarea.Configure(app, db, map[string]any{"Users": User{}})
//	if err != nil { ... }
//	if err := area.Wait(ctx); err != nil { ... }
//	app.Mount("/admin", area)
package adminarea

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"adminarea/internal/handlers"
	"adminarea/internal/locals"
	"adminarea/internal/middleware"
	"adminarea/internal/models"
	"adminarea/internal/registry"
	"adminarea/internal/sessions"
	"adminarea/internal/views"
)

type (
	// Model is the capability set a table needs to be managed by the area.
	// Pass a value implementing it to Configure to bypass the gorm adapter.
	Model  = models.Model
	Record = models.Record
	Page   = models.Page
	Admin  = models.Admin
)

var (
	ErrUnknownTable   = registry.ErrUnknownTable
	ErrDuplicateModel = registry.ErrDuplicateModel
	ErrRecordNotFound = models.ErrRecordNotFound
)

const (
	defaultSessionSecret = "dev-insecure-secret-change-me-now"
	maxBodySize          = 1 << 20
)

// App is the host application the admin area is configured on.
type App struct {
	chi.Router

	viewsOnce sync.Once
	views     *views.Engine
	viewsErr  error
}

// NewApp wraps r; a nil r gets a fresh chi router.
func NewApp(r chi.Router) *App {
	if r == nil {
		r = chi.NewRouter()
	}
	return &App{Router: r}
}

// ConfigureViews registers the admin template engine on the application.
// Only the first call does any work; later calls return its result.
func (a *App) ConfigureViews() error {
	a.viewsOnce.Do(func() {
		a.views, a.viewsErr = views.New()
	})
	return a.viewsErr
}

type options struct {
	sessionSecret string
	secureCookies bool
	sessionMaxAge time.Duration
	basePath      string
}

type Option func(*options)

// WithSessionSecret sets the secret the session cookie keys derive from.
func WithSessionSecret(secret string) Option {
	return func(o *options) { o.sessionSecret = secret }
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(on bool) Option {
	return func(o *options) { o.secureCookies = on }
}

func WithSessionMaxAge(d time.Duration) Option {
	return func(o *options) { o.sessionMaxAge = d }
}

// WithBasePath fixes the prefix used for links and redirects. Without it the
// prefix is taken from the chi mount point of each request.
func WithBasePath(p string) Option {
	return func(o *options) { o.basePath = p }
}

// Area is a configured admin area, ready to be mounted.
type Area struct {
	chi.Router

	models  *registry.Registry
	ready   chan struct{}
	syncErr error
}

// Configure builds an admin area for db and the given models. Model names
// are matched case-insensitively; "admins" is reserved for the built-in
// Admin model. The admins table is created in the background, see Wait.
func Configure(app *App, db *gorm.DB, in map[string]any, opts ...Option) (*Area, error) {
	if app == nil {
		return nil, errors.New("adminarea: nil app")
	}
	if db == nil {
		return nil, errors.New("adminarea: nil database")
	}

	o := options{sessionSecret: defaultSessionSecret}
	for _, opt := range opts {
		opt(&o)
	}

	if err := app.ConfigureViews(); err != nil {
		return nil, err
	}
	reg, err := registry.New(db, in)
	if err != nil {
		return nil, err
	}

	l := &locals.Locals{
		DB:     db,
		Models: reg,
		Views:  app.views,
		Sessions: sessions.NewStore(sessions.Options{
			Secret: o.sessionSecret,
			MaxAge: o.sessionMaxAge,
			Secure: o.secureCookies,
		}),
		Base: o.basePath,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestSize(maxBodySize))
	r.Use(middleware.Locals(l))

	// log in / out
	r.Get("/", handlers.AuthGet)
	r.With(middleware.AuthenticateUser(db)).Post("/", handlers.AuthPost)
	r.Post("/logout", handlers.Logout)

	r.Group(func(g chi.Router) {
		g.Use(middleware.AdminOnly)

		g.Get("/dashboard", handlers.DashboardGet)
		g.Post("/dashboard", handlers.DashboardPost)

		g.Get("/dashboard/{tableName}", handlers.TableDataGet)
		g.Post("/dashboard/{tableName}", handlers.TableDataPost)
		g.Put("/dashboard/{tableName}", handlers.TableDataPut)
		g.Delete("/dashboard/{tableName}", handlers.TableDataDelete)
	})

	area := &Area{Router: r, models: reg, ready: make(chan struct{})}
	go area.syncAdmins(db)
	return area, nil
}

// adminSyncs holds one mutex per gorm configuration, so areas sharing a
// database run AutoMigrate one at a time.
var adminSyncs sync.Map

func (a *Area) syncAdmins(db *gorm.DB) {
	defer close(a.ready)
	v, _ := adminSyncs.LoadOrStore(db.Config, new(sync.Mutex))
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	if err := models.SyncAdmins(context.Background(), db); err != nil {
		log.Printf("adminarea: %v", err)
		a.syncErr = err
	}
}

// Ready is closed once the admins table sync has finished.
func (a *Area) Ready() <-chan struct{} { return a.ready }

// Wait blocks until the admins table sync finishes and returns its error.
func (a *Area) Wait(ctx context.Context) error {
	select {
	case <-a.ready:
		return a.syncErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tables lists the registered table names, "admins" included.
func (a *Area) Tables() []string { return a.models.Names() }
