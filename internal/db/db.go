package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"adminarea/internal/config"
)

const pingTimeout = 5 * time.Second

// Open подключается к БД, выбранной через cfg.DBDriver, и возвращает gorm
// с настроенным пулом соединений.
func Open(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case "postgres":
		gdb, err = openPostgres(cfg.PostgresDSN(), gcfg)
	case "sqlite":
		gdb, err = OpenSQLite(cfg.SQLitePath, gcfg)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}

	// DSN не печатаем: в нём может быть пароль
	if cfg.DBDriver == "postgres" {
		log.Printf("db: connected (driver=postgres host=%s db=%s)", cfg.Postgres.Host, cfg.Postgres.Name)
	} else {
		log.Printf("db: connected (driver=sqlite path=%s)", cfg.SQLitePath)
	}
	return gdb, nil
}

// openPostgres открывает пул через lib/pq и отдаёт его gorm.
func openPostgres(dsn string, gcfg *gorm.Config) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open failed: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: ping failed: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gcfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: gorm open failed: %w", err)
	}
	return gdb, nil
}

// OpenSQLite открывает файл sqlite. При gcfg == nil берутся настройки gorm по умолчанию.
func OpenSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	if gcfg == nil {
		gcfg = &gorm.Config{}
	}
	gdb, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	return gdb, nil
}

// Close закрывает пул.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
