package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS locations (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    code       TEXT NOT NULL,
    type       TEXT NOT NULL CHECK (type IN ('warehouse', 'branch')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_code_active
    ON locations(code) WHERE deleted_at IS NULL;

CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_single_warehouse
    ON locations(type) WHERE type = 'warehouse' AND deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'supervisor', 'user')),
    location_id   INTEGER REFERENCES locations(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS products (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    sku         TEXT NOT NULL,
    description TEXT,
    price       TEXT NOT NULL DEFAULT '0',
    status      TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'discontinued')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at  DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku_active
    ON products(sku) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS stock (
    id          INTEGER PRIMARY KEY,
    product_id  INTEGER NOT NULL REFERENCES products(id),
    location_id INTEGER NOT NULL REFERENCES locations(id),
    quantity    INTEGER NOT NULL DEFAULT 0 CHECK (typeof(quantity) = 'integer' AND quantity >= 0),
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_by  INTEGER REFERENCES users(id),
    UNIQUE (product_id, location_id)
);

CREATE TABLE IF NOT EXISTS stock_movements (
    id         INTEGER PRIMARY KEY,
    stock_id   INTEGER NOT NULL REFERENCES stock(id),
    delta      INTEGER NOT NULL CHECK (delta <> 0),
    reason     TEXT NOT NULL CHECK (reason IN ('stocking', 'shipment', 'cancellation', 'receipt')),
    reference  TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by INTEGER REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_stock_movements_stock
    ON stock_movements(stock_id);

CREATE TABLE IF NOT EXISTS shipments (
    id           INTEGER PRIMARY KEY,
    tracking_id  TEXT NOT NULL UNIQUE,
    location_id  INTEGER NOT NULL REFERENCES locations(id),
    status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in-transit', 'delivered', 'cancelled')),
    total        TEXT NOT NULL,
    notes        TEXT,
    created_by   INTEGER REFERENCES users(id),
    created_at   DATETIME NOT NULL,
    shipped_at   DATETIME,
    delivered_at DATETIME,
    cancelled_at DATETIME,
    received_at  DATETIME,
    received_by  INTEGER REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS shipment_items (
    id          INTEGER PRIMARY KEY,
    shipment_id INTEGER NOT NULL REFERENCES shipments(id),
    line        INTEGER NOT NULL,
    stock_id    INTEGER NOT NULL REFERENCES stock(id),
    product_id  INTEGER NOT NULL REFERENCES products(id),
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    unit_price  TEXT NOT NULL,
    UNIQUE (shipment_id, line)
);

CREATE TABLE IF NOT EXISTS requests (
    id            INTEGER PRIMARY KEY,
    request_id    TEXT NOT NULL UNIQUE,
    location_id   INTEGER NOT NULL REFERENCES locations(id),
    priority      TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
    status        TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'fulfilled')),
    notes         TEXT,
    reject_reason TEXT,
    created_by    INTEGER REFERENCES users(id),
    requested_at  DATETIME NOT NULL,
    approved_at   DATETIME,
    approved_by   INTEGER REFERENCES users(id),
    rejected_at   DATETIME,
    rejected_by   INTEGER REFERENCES users(id),
    fulfilled_at  DATETIME,
    fulfilled_by  INTEGER REFERENCES users(id),
    received_at   DATETIME,
    received_by   INTEGER REFERENCES users(id),
    CHECK (status <> 'rejected' OR length(trim(reject_reason)) > 0)
);

CREATE TABLE IF NOT EXISTS request_items (
    id         INTEGER PRIMARY KEY,
    request_id INTEGER NOT NULL REFERENCES requests(id),
    line       INTEGER NOT NULL,
    product_id INTEGER NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    note       TEXT,
    UNIQUE (request_id, line)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_shipments_location ON shipments(location_id)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_location_status ON requests(location_id, status)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist
// and applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
