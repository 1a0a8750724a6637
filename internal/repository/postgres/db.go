package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func InitDB(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	username VARCHAR(150) NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar_url TEXT NOT NULL DEFAULT '',
	avatar_object TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS listings (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	title VARCHAR(250) NOT NULL,
	slug VARCHAR(280) NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	category VARCHAR(50) NOT NULL DEFAULT 'other',
	price NUMERIC(10,2) NOT NULL,
	quantity INT CHECK (quantity >= 0),
	condition VARCHAR(30) NOT NULL DEFAULT 'used_good',
	year_of_manufacture INT,
	brand VARCHAR(150) NOT NULL DEFAULT '',
	model VARCHAR(150) NOT NULL DEFAULT '',
	length_cm NUMERIC(7,2),
	width_cm NUMERIC(7,2),
	height_cm NUMERIC(7,2),
	weight_kg NUMERIC(7,3),
	material VARCHAR(100) NOT NULL DEFAULT '',
	color VARCHAR(80) NOT NULL DEFAULT '',
	original_packaging BOOLEAN NOT NULL DEFAULT FALSE,
	manual_included BOOLEAN NOT NULL DEFAULT FALSE,
	working_condition_description TEXT NOT NULL DEFAULT '',
	is_available BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS listings_title_idx ON listings (title);
CREATE INDEX IF NOT EXISTS listings_owner_idx ON listings (owner_id);

CREATE TABLE IF NOT EXISTS listing_images (
	id TEXT PRIMARY KEY,
	listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	object_name TEXT NOT NULL DEFAULT '',
	alt VARCHAR(255) NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cart_entries (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	qty INT NOT NULL DEFAULT 1 CHECK (qty >= 1),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (account_id, listing_id)
);

CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	ordered BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS order_lines (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	listing_id TEXT NOT NULL,
	title VARCHAR(255) NOT NULL DEFAULT '',
	qty INT NOT NULL DEFAULT 1,
	price_snapshot NUMERIC(12,2)
);

CREATE TABLE IF NOT EXISTS outbox (
	id BIGSERIAL PRIMARY KEY,
	event_id TEXT NOT NULL UNIQUE,
	topic TEXT NOT NULL,
	key TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	sent_at TIMESTAMPTZ,
	claimed_until TIMESTAMPTZ
);
ALTER TABLE outbox ADD COLUMN IF NOT EXISTS claimed_until TIMESTAMPTZ;
CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (id) WHERE sent_at IS NULL;
`
