// Package store persists the current price-cache mapping so a restarted
// service resumes with known quotes instead of fabricating placeholders.
// Only the latest entry per asset is kept; there is no history.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juicedollar/protocol-api/internal/prices"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// SavePrices checkpoints the full cache mapping in one transaction. The
// ordinal records cache order so a restore lists assets the same way.
func (s *Store) SavePrices(ctx context.Context, entries []prices.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for i, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO price_entries (address, ordinal, name, symbol, decimals, usd, eur, btc, quoted_at_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (address) DO UPDATE
				SET ordinal = $2, name = $3, symbol = $4, decimals = $5,
				    usd = $6, eur = $7, btc = $8, quoted_at_ms = $9, updated_at = now()`,
			e.Address, i, e.Name, e.Symbol, e.Decimals,
			e.Price.USD, e.Price.EUR, e.Price.BTC, e.Timestamp)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// LoadPrices returns the checkpointed mapping in its original cache order.
func (s *Store) LoadPrices(ctx context.Context) ([]prices.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, name, symbol, decimals, usd, eur, btc, quoted_at_ms
		FROM price_entries ORDER BY ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []prices.Entry
	for rows.Next() {
		var e prices.Entry
		if err := rows.Scan(&e.Address, &e.Name, &e.Symbol, &e.Decimals,
			&e.Price.USD, &e.Price.EUR, &e.Price.BTC, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
