package store

// schema creates every table. Amounts are decimal strings and dates are
// YYYY-MM-DD so both round-trip without float drift.
const schema = `
CREATE TABLE IF NOT EXISTS import_batches (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    filename TEXT NOT NULL,
    imported_at TEXT NOT NULL,
    rows_added INTEGER NOT NULL DEFAULT 0,
    rows_skipped INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_import_batches_user
    ON import_batches(user_id, imported_at);

CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    batch_id TEXT NOT NULL REFERENCES import_batches(id) ON DELETE CASCADE,
    txn_date TEXT NOT NULL,
    merchant_raw TEXT NOT NULL,
    merchant_key TEXT NOT NULL,
    amount TEXT NOT NULL,
    include_in_detection INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_key
    ON transactions(user_id, merchant_key, txn_date);

CREATE TABLE IF NOT EXISTS subscriptions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    merchant_key TEXT NOT NULL,
    amount TEXT NOT NULL,
    cadence TEXT NOT NULL,
    next_due_date TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    notes TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user_status
    ON subscriptions(user_id, status);

CREATE TABLE IF NOT EXISTS candidates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    merchant_key TEXT NOT NULL,
    display_name TEXT NOT NULL,
    avg_amount TEXT NOT NULL,
    cadence_guess TEXT NOT NULL,
    confidence REAL NOT NULL,
    last_seen TEXT NOT NULL,
    next_predicted TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    confirmed_subscription_id INTEGER REFERENCES subscriptions(id) ON DELETE SET NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_user_status
    ON candidates(user_id, status, confidence);

-- At most one pending candidate per user and merchant.
CREATE UNIQUE INDEX IF NOT EXISTS idx_candidates_one_pending
    ON candidates(user_id, merchant_key)
    WHERE status = 'pending';
`
