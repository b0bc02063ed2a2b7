package db

import (
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	user_id       INTEGER PRIMARY KEY,
	is_premium    INTEGER NOT NULL DEFAULT 0,
	premium_until INTEGER
);

CREATE TABLE IF NOT EXISTS alerts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	crypto       TEXT NOT NULL,
	target_price TEXT NOT NULL,
	direction    TEXT NOT NULL,
	is_active    INTEGER NOT NULL DEFAULT 1,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_alerts_active ON alerts (is_active);

CREATE TABLE IF NOT EXISTS payment_orders (
	order_id   TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL,
	plan       TEXT NOT NULL,
	provider   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS promo_codes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	code          TEXT NOT NULL UNIQUE,
	days_duration INTEGER NOT NULL,
	max_uses      INTEGER NOT NULL,
	used_count    INTEGER NOT NULL DEFAULT 0,
	is_active     INTEGER NOT NULL DEFAULT 1,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS promo_code_usages (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       INTEGER NOT NULL,
	promo_code_id INTEGER NOT NULL,
	used_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Connect открывает SQLite базу и создает схему при первом запуске
func Connect(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite допускает только одного писателя
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return database, nil
}
