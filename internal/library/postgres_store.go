package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the library table used by PostgresStore.
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS factor_library`,
	`CREATE TABLE IF NOT EXISTS factor_library.entries (
		name             TEXT        NOT NULL,
		version          TEXT        NOT NULL,
		provider         TEXT        NOT NULL,
		params           JSONB       NOT NULL DEFAULT '{}',
		source           TEXT        NOT NULL,
		tags             TEXT[]      NOT NULL DEFAULT '{}',
		description      TEXT        NOT NULL DEFAULT '',
		admitted_horizon INTEGER     NOT NULL DEFAULT 0,
		metrics          JSONB       NOT NULL DEFAULT '{}',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (name, version)
	)`,
}

const entryColumns = `name, version, provider, params, source, tags, description, admitted_horizon, metrics, created_at`

// PostgresStore keeps the library in factor_library.entries.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new Postgres-backed store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save upserts on (name, version)
func (s *PostgresStore) Save(ctx context.Context, e FactorEntry) error {
	query := `
		INSERT INTO factor_library.entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name, version) DO UPDATE SET
			provider = EXCLUDED.provider,
			params = EXCLUDED.params,
			source = EXCLUDED.source,
			tags = EXCLUDED.tags,
			description = EXCLUDED.description,
			admitted_horizon = EXCLUDED.admitted_horizon,
			metrics = EXCLUDED.metrics,
			created_at = EXCLUDED.created_at
	`

	_, err := s.pool.Exec(ctx, query,
		e.Name, e.Version, e.Provider, nonNil(e.Params), string(e.Source),
		nonNilTags(e.Tags), e.Description, e.AdmittedHorizon, nonNil(e.Metrics), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save factor %s@%s: %w", e.Name, e.Version, err)
	}
	return nil
}

// Load returns one version, or the newest when version is empty
func (s *PostgresStore) Load(ctx context.Context, name, version string) (*FactorEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM factor_library.entries
		WHERE name = $1 AND ($2::text = '' OR version = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`

	e, err := scanEntry(s.pool.QueryRow(ctx, query, name, version))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load factor %s: %w", name, err)
	}
	return e, nil
}

// List returns every entry ordered by name then version
func (s *PostgresStore) List(ctx context.Context) ([]FactorEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM factor_library.entries
		ORDER BY name ASC, version ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list factors: %w", err)
	}
	defer rows.Close()

	var out []FactorEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan factor: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list factors: %w", err)
	}
	return out, nil
}

// Delete removes one version
func (s *PostgresStore) Delete(ctx context.Context, name, version string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM factor_library.entries WHERE name = $1 AND version = $2`, name, version)
	if err != nil {
		return fmt.Errorf("delete factor %s@%s: %w", name, version, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*FactorEntry, error) {
	var (
		e      FactorEntry
		source string
	)
	err := row.Scan(&e.Name, &e.Version, &e.Provider, &e.Params, &source,
		&e.Tags, &e.Description, &e.AdmittedHorizon, &e.Metrics, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Source = Source(source)
	if len(e.Params) == 0 {
		e.Params = nil
	}
	if len(e.Metrics) == 0 {
		e.Metrics = nil
	}
	if len(e.Tags) == 0 {
		e.Tags = nil
	}
	return &e, nil
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
