// Package storage provides the canonical offer store backends: Postgres for
// production and an in-memory map for local development and tests. Both key
// reconciliation on the dedup key so concurrent sync runs cannot
// double-insert.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the offers table when missing. The unique index on
// dedup_key is what makes Upsert safe under concurrent sync runs.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS offers (
	id             UUID PRIMARY KEY,
	dedup_key      TEXT NOT NULL UNIQUE,
	source         TEXT NOT NULL,
	external_id    TEXT NOT NULL,
	type           TEXT NOT NULL,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	company        TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	salary_min     DOUBLE PRECISION NOT NULL DEFAULT 0,
	salary_max     DOUBLE PRECISION NOT NULL DEFAULT 0,
	price          DOUBLE PRECISION NOT NULL DEFAULT 0,
	original_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	on_sale        BOOLEAN NOT NULL DEFAULT FALSE,
	url            TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'active',
	featured       BOOLEAN NOT NULL DEFAULT FALSE,
	urgent         BOOLEAN NOT NULL DEFAULT FALSE,
	published_at   TIMESTAMPTZ,
	expires_at     TIMESTAMPTZ,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("ensure offers schema: %w", err)
	}
	return nil
}

// GetByDedupKey returns the stored offer for key, or nil when absent.
func (p *Postgres) GetByDedupKey(ctx context.Context, key string) (*models.Offer, error) {
	row := p.pool.QueryRow(ctx, `
SELECT id, source, external_id, type, title, description, company, location,
       salary_min, salary_max, price, original_price, on_sale, url, category,
       status, featured, urgent,
       COALESCE(published_at, 'epoch'::timestamptz),
       COALESCE(expires_at, 'epoch'::timestamptz)
FROM offers WHERE dedup_key = $1`, key)

	var o models.Offer
	err := row.Scan(&o.ID, &o.Source, &o.ExternalID, &o.Type, &o.Title,
		&o.Description, &o.Company, &o.Location, &o.SalaryMin, &o.SalaryMax,
		&o.Price, &o.OriginalPrice, &o.OnSale, &o.URL, &o.Category,
		&o.Status, &o.Featured, &o.Urgent, &o.PublishedAt, &o.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get offer by dedup key %s: %w", key, err)
	}
	return &o, nil
}

// Upsert inserts the offer or, when its dedup key already exists, updates
// only the provider-tracked fields. Status and featured stay untouched on
// conflict so administrative corrections survive every sync. Returns whether
// a new row was created.
func (p *Postgres) Upsert(ctx context.Context, o models.Offer) (bool, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	// xmax = 0 only for freshly inserted rows.
	row := p.pool.QueryRow(ctx, `
INSERT INTO offers (id, dedup_key, source, external_id, type, title,
	description, company, location, salary_min, salary_max, price,
	original_price, on_sale, url, category, status, featured, urgent,
	published_at, expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	$16, $17, $18, $19, $20, $21, now())
ON CONFLICT (dedup_key) DO UPDATE SET
	title          = EXCLUDED.title,
	description    = EXCLUDED.description,
	company        = EXCLUDED.company,
	location       = EXCLUDED.location,
	salary_min     = EXCLUDED.salary_min,
	salary_max     = EXCLUDED.salary_max,
	price          = EXCLUDED.price,
	original_price = EXCLUDED.original_price,
	on_sale        = EXCLUDED.on_sale,
	url            = EXCLUDED.url,
	category       = EXCLUDED.category,
	published_at   = EXCLUDED.published_at,
	expires_at     = EXCLUDED.expires_at,
	updated_at     = now()
RETURNING (xmax = 0)`,
		o.ID, o.DedupKey(), o.Source, o.ExternalID, o.Type, o.Title,
		o.Description, o.Company, o.Location, o.SalaryMin, o.SalaryMax,
		o.Price, o.OriginalPrice, o.OnSale, o.URL, o.Category,
		o.Status, o.Featured, o.Urgent, o.PublishedAt, o.ExpiresAt)

	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		return false, fmt.Errorf("upsert offer %s: %w", o.DedupKey(), err)
	}
	return inserted, nil
}

func (p *Postgres) CountOffers(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM offers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count offers: %w", err)
	}
	return count, nil
}
