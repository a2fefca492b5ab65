package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminsTable is the reserved registry key and table name of Admin.
const AdminsTable = "admins"

// ErrInvalidCredentials is returned for an unknown login or a wrong password.
var ErrInvalidCredentials = errors.New("invalid login or password")

// Admin is a user allowed into the admin area.
// The password is only ever stored as a bcrypt hash.
type Admin struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Login        string     `gorm:"uniqueIndex;size:191;not null" json:"login"`
	PasswordHash string     `gorm:"not null" json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Admin) TableName() string { return AdminsTable }

// SetPassword replaces the stored hash.
func (a *Admin) SetPassword(password string) error {
	if password == "" {
		return errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (a *Admin) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// BeforeSave hashes a plain-text value written to password_hash, which is
// what the generic table editor does when an admin row is created or edited.
// An empty hash is refused: it would lock the admin out for good.
func (a *Admin) BeforeSave(*gorm.DB) error {
	a.Login = strings.TrimSpace(a.Login)
	if a.Login == "" {
		return fmt.Errorf("%s.login must not be empty: %w", AdminsTable, ErrInvalidValue)
	}
	if a.PasswordHash == "" {
		return fmt.Errorf("%s.password_hash must not be empty: %w", AdminsTable, ErrInvalidValue)
	}
	if _, err := bcrypt.Cost([]byte(a.PasswordHash)); err == nil {
		return nil
	}
	return a.SetPassword(a.PasswordHash)
}

// NewAdminModel returns the table model backing the "admins" registry entry.
func NewAdminModel(db *gorm.DB) (*GormModel, error) {
	return NewGormModel(db, &Admin{})
}

// SyncAdmins makes sure the admins table exists.
func SyncAdmins(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&Admin{}); err != nil {
		return fmt.Errorf("sync %s: %w", AdminsTable, err)
	}
	return nil
}

// Authenticate looks the admin up by login and checks the password.
func Authenticate(ctx context.Context, db *gorm.DB, login, password string) (*Admin, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var a Admin
	err := db.WithContext(ctx).Where("login = ?", login).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if !a.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return &a, nil
}

// FindAdmin loads the admin with the given id.
func FindAdmin(ctx context.Context, db *gorm.DB, id uint) (*Admin, error) {
	var a Admin
	err := db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s id=%d: %w", AdminsTable, id, ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	return &a, nil
}

// CreateAdmin inserts a new admin with a hashed password.
func CreateAdmin(ctx context.Context, db *gorm.DB, login, password string) (*Admin, error) {
	a := &Admin{Login: login}
	if err := a.SetPassword(password); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, fmt.Errorf("create admin %q: %w", login, err)
	}
	return a, nil
}

// TouchLogin records a successful login.
func TouchLogin(ctx context.Context, db *gorm.DB, id uint) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&Admin{}).Where("id = ?", id).
		UpdateColumn("last_login_at", now).Error
}
