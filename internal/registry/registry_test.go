package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"adminarea/internal/models"
)

type User struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

type Order struct {
	ID    uint `gorm:"primaryKey"`
	Total int
}

type stubModel struct {
	models.Model
	table string
}

func (s stubModel) Table() string { return s.table }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestNew_LowercasesKeys(t *testing.T) {
	r, err := New(setupTestDB(t), map[string]any{"Users": User{}, "ORDERS": &Order{}})
	require.NoError(t, err)

	assert.Equal(t, []string{"admins", "orders", "users"}, r.Names())
	assert.Equal(t, 3, r.Len())

	m, err := r.Lookup("UsErS")
	require.NoError(t, err)
	assert.Equal(t, "users", m.Table())
}

func TestNew_AdminsAlwaysPresent(t *testing.T) {
	r, err := New(setupTestDB(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"admins"}, r.Names())
	m, err := r.Lookup("admins")
	require.NoError(t, err)
	assert.Equal(t, models.AdminsTable, m.Table())
}

func TestNew_Collisions(t *testing.T) {
	db := setupTestDB(t)

	_, err := New(db, map[string]any{"Users": User{}, "users": User{}})
	assert.ErrorIs(t, err, ErrDuplicateModel)

	_, err = New(db, map[string]any{"Admins": User{}})
	assert.ErrorIs(t, err, ErrDuplicateModel)
}

func TestNew_InvalidModels(t *testing.T) {
	db := setupTestDB(t)

	_, err := New(db, map[string]any{"": User{}})
	assert.Error(t, err)

	_, err = New(db, map[string]any{"users": nil})
	assert.Error(t, err)

	type keyless struct{ Name string }
	_, err = New(db, map[string]any{"keyless": keyless{}})
	assert.ErrorIs(t, err, models.ErrNoPrimaryKey)
}

func TestNew_KeepsCustomModels(t *testing.T) {
	stub := stubModel{table: "legacy_reports"}
	r, err := New(setupTestDB(t), map[string]any{"Reports": stub})
	require.NoError(t, err)

	m, err := r.Lookup("reports")
	require.NoError(t, err)
	assert.Equal(t, "legacy_reports", m.Table())
}

func TestLookup_Unknown(t *testing.T) {
	r, err := New(setupTestDB(t), nil)
	require.NoError(t, err)

	_, err = r.Lookup("unknown")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestNew_IndependentRegistries(t *testing.T) {
	db := setupTestDB(t)
	in := map[string]any{"Users": User{}}

	a, err := New(db, in)
	require.NoError(t, err)
	in["Orders"] = Order{}
	b, err := New(db, in)
	require.NoError(t, err)

	assert.Equal(t, []string{"admins", "users"}, a.Names())
	assert.Equal(t, []string{"admins", "orders", "users"}, b.Names())

	_, err = a.Lookup("orders")
	assert.ErrorIs(t, err, ErrUnknownTable)
}
