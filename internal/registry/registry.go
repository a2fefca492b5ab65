// Package registry maps table names to the models the admin area edits.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"adminarea/internal/models"
)

var (
	ErrUnknownTable   = errors.New("unknown table")
	ErrDuplicateModel = errors.New("duplicate model name")
)

// Registry is an immutable, lowercase-keyed set of models. The "admins"
// entry is always present.
type Registry struct {
	models map[string]models.Model
}

// New builds a registry from caller models. Values implementing
// models.Model are used as they are; anything else is treated as a gorm
// model prototype.
func New(db *gorm.DB, in map[string]any) (*Registry, error) {
	admins, err := models.NewAdminModel(db)
	if err != nil {
		return nil, err
	}

	r := &Registry{models: make(map[string]models.Model, len(in)+1)}
	r.models[models.AdminsTable] = admins

	seen := make(map[string]string, len(in))
	for name, v := range in {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, fmt.Errorf("registry: empty model name")
		}
		if key == models.AdminsTable {
			return nil, fmt.Errorf("registry: %q is reserved: %w", name, ErrDuplicateModel)
		}
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("registry: %q and %q both map to %q: %w", prev, name, key, ErrDuplicateModel)
		}
		seen[key] = name

		m, err := toModel(db, v)
		if err != nil {
			return nil, fmt.Errorf("registry: model %q: %w", name, err)
		}
		r.models[key] = m
	}
	return r, nil
}

func toModel(db *gorm.DB, v any) (models.Model, error) {
	if v == nil {
		return nil, errors.New("nil model")
	}
	if m, ok := v.(models.Model); ok {
		return m, nil
	}
	return models.NewGormModel(db, v)
}

// Lookup finds a model by name, ignoring case.
func (r *Registry) Lookup(name string) (models.Model, error) {
	m, ok := r.models[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownTable)
	}
	return m, nil
}

// Names returns every registry key in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for k := range r.models {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int { return len(r.models) }
