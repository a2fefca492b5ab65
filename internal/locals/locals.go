// Package locals carries the admin area's shared per-request values.
package locals

import (
	"context"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"adminarea/internal/models"
	"adminarea/internal/registry"
	"adminarea/internal/sessions"
	"adminarea/internal/views"
)

type ctxKey int

const (
	localsKey ctxKey = iota
	adminKey
)

// Locals is attached to every request that enters the admin area.
type Locals struct {
	DB       *gorm.DB
	Models   *registry.Registry
	Views    *views.Engine
	Sessions *sessions.Store
	// Base is the path the admin area is mounted at, without trailing slash.
	Base string
}

func With(ctx context.Context, l *Locals) context.Context {
	return context.WithValue(ctx, localsKey, l)
}

// From returns the request's locals; it panics when the Locals middleware
// did not run, which is a wiring bug.
func From(ctx context.Context) *Locals {
	l, ok := ctx.Value(localsKey).(*Locals)
	if !ok {
		panic("locals: missing from context")
	}
	return l
}

func WithAdmin(ctx context.Context, a *models.Admin) context.Context {
	return context.WithValue(ctx, adminKey, a)
}

// Admin returns the admin authenticated for this request, if any.
func Admin(ctx context.Context) (*models.Admin, bool) {
	a, ok := ctx.Value(adminKey).(*models.Admin)
	return a, ok
}

// MountBase derives the mount prefix from chi's routing state: inside a
// mounted sub-router RoutePath holds the part of the path below the mount.
func MountBase(ctx context.Context, urlPath string) string {
	rctx := chi.RouteContext(ctx)
	if rctx == nil || rctx.RoutePath == "" {
		return ""
	}
	base := strings.TrimSuffix(urlPath, rctx.RoutePath)
	return strings.TrimSuffix(base, "/")
}
