package store

import "context"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS price_entries (
    address TEXT PRIMARY KEY,
    ordinal INT NOT NULL DEFAULT 0,
    name TEXT NOT NULL DEFAULT '',
    symbol TEXT NOT NULL DEFAULT '',
    decimals INT NOT NULL DEFAULT 18,
    usd DOUBLE PRECISION NOT NULL,
    eur DOUBLE PRECISION NOT NULL DEFAULT 0,
    btc DOUBLE PRECISION NOT NULL DEFAULT 0,
    quoted_at_ms BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL)
	return err
}
