package repository

// Schema is the Postgres DDL for orders.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
    order_id         SERIAL PRIMARY KEY,
    user_id          INTEGER NOT NULL,
    order_date       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status           VARCHAR(50) NOT NULL DEFAULT 'pending',
    total_amount     NUMERIC(10, 2) NOT NULL,
    shipping_address TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status);
CREATE TABLE IF NOT EXISTS order_items (
    order_item_id     SERIAL PRIMARY KEY,
    order_id          INTEGER NOT NULL REFERENCES orders (order_id) ON DELETE CASCADE,
    product_id        INTEGER NOT NULL,
    quantity          INTEGER NOT NULL CHECK (quantity > 0),
    price_at_purchase NUMERIC(10, 2) NOT NULL,
    item_total        NUMERIC(10, 2) NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id);
`

// SQLiteSchema mirrors Schema for in-memory test databases.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS orders (
    order_id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id          INTEGER NOT NULL,
    order_date       TIMESTAMP NOT NULL,
    status           VARCHAR(50) NOT NULL DEFAULT 'pending',
    total_amount     NUMERIC(10, 2) NOT NULL,
    shipping_address TEXT,
    created_at       TIMESTAMP NOT NULL,
    updated_at       TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
    order_item_id     INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id          INTEGER NOT NULL REFERENCES orders (order_id) ON DELETE CASCADE,
    product_id        INTEGER NOT NULL,
    quantity          INTEGER NOT NULL CHECK (quantity > 0),
    price_at_purchase NUMERIC(10, 2) NOT NULL,
    item_total        NUMERIC(10, 2) NOT NULL,
    created_at        TIMESTAMP NOT NULL,
    updated_at        TIMESTAMP NOT NULL
);
`
