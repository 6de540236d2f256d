// Package store is the dev backend's persistence layer: pgx against a
// local Postgres, plain SQL, schema created on boot. It exists to give
// the client a complete backend to run against; it is not the
// production service.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"workmap/internal/common/config"
	"workmap/internal/common/log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool builds a DSN from cfg, verifies connectivity, and returns the
// pool.
func NewPool(ctx context.Context, cfg config.DB, logger *slog.Logger) (*pgxpool.Pool, error) {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
		User:   url.UserPassword(cfg.User, cfg.Password),
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()

	pcfg, err := pgxpool.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	pcfg.MaxConns = 8
	pcfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info(ctx, logger, "db_connected", "Connected to Postgres "+cfg.Host)
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS usuarios (
	id            BIGSERIAL PRIMARY KEY,
	nombre        TEXT NOT NULL,
	apellido      TEXT NOT NULL,
	dni           TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	tipo          TEXT NOT NULL CHECK (tipo IN ('trabajador', 'cliente')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS posiciones (
	user_id    BIGINT PRIMARY KEY REFERENCES usuarios(id),
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS perfiles (
	user_id     BIGINT PRIMARY KEY REFERENCES usuarios(id),
	titulo      TEXT NOT NULL,
	descripcion TEXT NOT NULL,
	telefono    TEXT NOT NULL DEFAULT '',
	foto_url    TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS publicaciones (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL REFERENCES usuarios(id),
	titulo      TEXT NOT NULL,
	descripcion TEXT NOT NULL,
	precio      DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// EnsureSchema creates the dev tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
