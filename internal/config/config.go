package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the adminarea command reads from the environment.
type Config struct {
	Host      string `env:"HOST" envDefault:"127.0.0.1"`
	Port      string `env:"PORT" envDefault:"8080"`
	MountPath string `env:"ADMIN_MOUNT_PATH" envDefault:"/admin"`

	// DBDriver is either "postgres" or "sqlite".
	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"adminarea.db"`
	Postgres    Postgres

	SessionSecret string        `env:"SESSION_SECRET" envDefault:"dev-insecure-secret-change-me-now"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"168h"`
	// SecureCookies should be on behind an HTTPS proxy.
	SecureCookies bool `env:"APP_HTTPS" envDefault:"false"`
}

// Postgres is used to build a DSN when DATABASE_URL is empty.
type Postgres struct {
	DSN      string `env:"POSTGRES_DSN"`
	Host     string `env:"POSTGRES_HOST" envDefault:"127.0.0.1"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	Name     string `env:"POSTGRES_DB" envDefault:"adminarea"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if !strings.HasPrefix(cfg.MountPath, "/") {
		cfg.MountPath = "/" + cfg.MountPath
	}
	return cfg, nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// PostgresDSN picks DATABASE_URL, then POSTGRES_DSN, then builds a lib/pq
// key=value DSN from the individual variables.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.Postgres.DSN != "" {
		return c.Postgres.DSN
	}
	p := c.Postgres
	parts := []string{
		"host=" + p.Host,
		"port=" + p.Port,
		"user=" + p.User,
		"dbname=" + p.Name,
		"sslmode=" + p.SSLMode,
	}
	if p.Password != "" {
		parts = append(parts, "password="+p.Password)
	}
	return strings.Join(parts, " ")
}
