package postgres

import "context"

// Schema is the full relational schema. EnsureSchema applies it at startup;
// statements are idempotent so restarts are safe.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	phone TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'customer',
	credits NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (credits >= 0),
	pin_hash TEXT NOT NULL DEFAULT '',
	otp_code TEXT NOT NULL DEFAULT '',
	otp_expiry TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	date TIMESTAMPTZ NOT NULL,
	location TEXT NOT NULL,
	price NUMERIC(10,2) NOT NULL CHECK (price > 0),
	ticket_count INT NOT NULL CHECK (ticket_count > 0),
	max_purchase_per_user INT NOT NULL DEFAULT 5
);

CREATE TABLE IF NOT EXISTS tickets (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	user_id UUID REFERENCES users(id),
	unique_code TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'AVAILABLE'
		CHECK (status IN ('AVAILABLE', 'PURCHASED', 'USED', 'EXPIRED')),
	qr_path TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	purchased_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS tickets_event_status_idx ON tickets (event_id, status);

CREATE TABLE IF NOT EXISTS tokens (
	id UUID PRIMARY KEY,
	code UUID NOT NULL UNIQUE,
	amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
	created_by UUID NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expiry_date TIMESTAMPTZ NOT NULL,
	used BOOLEAN NOT NULL DEFAULT FALSE,
	used_by UUID REFERENCES users(id),
	used_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS ledger (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	amount NUMERIC(10,2) NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('PURCHASE', 'REDEMPTION', 'TICKET_PURCHASE')),
	ts TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ledger_user_idx ON ledger (user_id, ts DESC);

CREATE TABLE IF NOT EXISTS announcements (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'MEDIUM' CHECK (priority IN ('LOW', 'MEDIUM', 'HIGH')),
	created_by UUID NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	valid_until TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id UUID NOT NULL,
	event_type TEXT NOT NULL,
	payload_json BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'NEW' CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
	dedupe_key TEXT NOT NULL DEFAULT ''
);
`

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}
