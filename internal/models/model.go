package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrInvalidValue   = errors.New("invalid value")
	ErrNoPrimaryKey   = errors.New("model has no primary key")
)

// Record is one table row keyed by column name.
type Record map[string]any

// Page selects a window of rows.
type Page struct {
	Limit  int
	Offset int
}

// Model is what the admin area needs from a table.
type Model interface {
	// Table is the database table name.
	Table() string
	PrimaryKey() string
	// Columns lists the columns shown to the admin, in declaration order.
	Columns() []string
	// InputColumns lists the columns an admin may fill in when creating a row.
	InputColumns() []string

	List(ctx context.Context, p Page) ([]Record, error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, id string, rec Record) (Record, error)
	Delete(ctx context.Context, id string) error

	// Sync creates or migrates the table.
	Sync(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
}

// GormModel implements Model for any gorm model struct.
type GormModel struct {
	db     *gorm.DB
	schema *schema.Schema
	pk     *schema.Field
	shown  []*schema.Field
	input  []string
}

var _ Model = (*GormModel)(nil)

// NewGormModel parses the gorm schema of proto, a struct value or pointer.
func NewGormModel(db *gorm.DB, proto any) (*GormModel, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(proto); err != nil {
		return nil, fmt.Errorf("parse model %T: %w", proto, err)
	}
	s := stmt.Schema
	if s.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("%s: %w", s.Table, ErrNoPrimaryKey)
	}

	m := &GormModel{db: db, schema: s, pk: s.PrioritizedPrimaryField}
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		if jsonName(f) != "-" && f.Readable {
			m.shown = append(m.shown, f)
		}
		if f.Creatable && !f.PrimaryKey && f.AutoCreateTime == 0 && f.AutoUpdateTime == 0 &&
			f.DBName != "deleted_at" {
			m.input = append(m.input, f.DBName)
		}
	}
	return m, nil
}

func jsonName(f *schema.Field) string {
	tag := f.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func (m *GormModel) Table() string      { return m.schema.Table }
func (m *GormModel) PrimaryKey() string { return m.pk.DBName }

func (m *GormModel) Columns() []string {
	cols := make([]string, 0, len(m.shown))
	for _, f := range m.shown {
		cols = append(cols, f.DBName)
	}
	return cols
}

func (m *GormModel) InputColumns() []string {
	return append([]string(nil), m.input...)
}

func (m *GormModel) newPtr() reflect.Value {
	return reflect.New(m.schema.ModelType)
}

func (m *GormModel) record(ctx context.Context, rv reflect.Value) Record {
	rec := make(Record, len(m.shown))
	for _, f := range m.shown {
		v, _ := f.ValueOf(ctx, rv)
		rec[f.DBName] = v
	}
	return rec
}

// parseID converts id into the primary key's Go type.
func (m *GormModel) parseID(ctx context.Context, id string) (any, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%s: empty %s: %w", m.Table(), m.pk.DBName, ErrInvalidValue)
	}
	rv := m.newPtr().Elem()
	if err := m.pk.Set(ctx, rv, id); err != nil {
		return nil, fmt.Errorf("%s: %s %q: %w", m.Table(), m.pk.DBName, id, ErrInvalidValue)
	}
	v, _ := m.pk.ValueOf(ctx, rv)
	return v, nil
}

func (m *GormModel) byID(v any) clause.Eq {
	return clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: m.pk.DBName}, Value: v}
}

// assign copies rec onto the struct rv. Empty strings are ignored for
// non-string columns so that blank form fields keep their zero value.
// json.Number values are set from their text so that 64-bit integers
// keep every digit.
func (m *GormModel) assign(ctx context.Context, rv reflect.Value, rec Record, skipPK bool) error {
	for key, val := range rec {
		f := m.schema.LookUpField(key)
		if f == nil || f.DBName == "" {
			return fmt.Errorf("%s.%s: %w", m.Table(), key, ErrUnknownColumn)
		}
		if f.PrimaryKey && skipPK {
			continue
		}
		if n, ok := val.(json.Number); ok {
			val = n.String()
		}
		if s, ok := val.(string); ok && s == "" && f.FieldType.Kind() != reflect.String {
			continue
		}
		if err := f.Set(ctx, rv, val); err != nil {
			return fmt.Errorf("%s.%s: %w: %v", m.Table(), f.DBName, ErrInvalidValue, err)
		}
	}
	return nil
}

func (m *GormModel) List(ctx context.Context, p Page) ([]Record, error) {
	rows := reflect.New(reflect.SliceOf(m.schema.ModelType))
	q := m.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: m.pk.DBName}})
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	if err := q.Find(rows.Interface()).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", m.Table(), err)
	}

	slice := rows.Elem()
	out := make([]Record, 0, slice.Len())
	for i := 0; i < slice.Len(); i++ {
		out = append(out, m.record(ctx, slice.Index(i)))
	}
	return out, nil
}

func (m *GormModel) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := m.db.WithContext(ctx).Model(m.newPtr().Interface()).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", m.Table(), err)
	}
	return n, nil
}

func (m *GormModel) load(ctx context.Context, id string) (reflect.Value, error) {
	v, err := m.parseID(ctx, id)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := m.newPtr()
	err = m.db.WithContext(ctx).Where(m.byID(v)).First(ptr.Interface()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return reflect.Value{}, fmt.Errorf("%s %s=%s: %w", m.Table(), m.pk.DBName, id, ErrRecordNotFound)
	}
	if err != nil {
		return reflect.Value{}, fmt.Errorf("get %s: %w", m.Table(), err)
	}
	return ptr, nil
}

func (m *GormModel) Get(ctx context.Context, id string) (Record, error) {
	ptr, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.record(ctx, ptr.Elem()), nil
}

func (m *GormModel) Create(ctx context.Context, rec Record) (Record, error) {
	ptr := m.newPtr()
	if err := m.assign(ctx, ptr.Elem(), rec, false); err != nil {
		return nil, err
	}
	if err := m.db.WithContext(ctx).Create(ptr.Interface()).Error; err != nil {
		return nil, fmt.Errorf("create %s: %w", m.Table(), err)
	}
	return m.record(ctx, ptr.Elem()), nil
}

func (m *GormModel) Update(ctx context.Context, id string, rec Record) (Record, error) {
	ptr, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.assign(ctx, ptr.Elem(), rec, true); err != nil {
		return nil, err
	}
	if err := m.db.WithContext(ctx).Save(ptr.Interface()).Error; err != nil {
		return nil, fmt.Errorf("update %s: %w", m.Table(), err)
	}
	return m.record(ctx, ptr.Elem()), nil
}

func (m *GormModel) Delete(ctx context.Context, id string) error {
	v, err := m.parseID(ctx, id)
	if err != nil {
		return err
	}
	res := m.db.WithContext(ctx).Where(m.byID(v)).Delete(m.newPtr().Interface())
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", m.Table(), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s=%s: %w", m.Table(), m.pk.DBName, id, ErrRecordNotFound)
	}
	return nil
}

func (m *GormModel) Sync(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(m.newPtr().Interface()); err != nil {
		return fmt.Errorf("sync %s: %w", m.Table(), err)
	}
	return nil
}

func (m *GormModel) Exists(ctx context.Context) (bool, error) {
	return m.db.WithContext(ctx).Migrator().HasTable(m.newPtr().Interface()), nil
}
