// Package record reads canonical listings from PostgreSQL.
package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"
)

// Repo is the read-only canonical record store adapter.
type Repo struct {
	db       *sql.DB
	getSQL   string
	pageSQL  string
	pageSize int
}

// Open connects to PostgreSQL through lib/pq.
func Open(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return conn, nil
}

// New creates a repository over table. Columns: id, titulo, descricao,
// especificacoes (text[]).
func New(conn *sql.DB, table string, pageSize int) *Repo {
	t := pq.QuoteIdentifier(table)
	return &Repo{
		db: conn,
		getSQL: `SELECT id, COALESCE(titulo, ''), COALESCE(descricao, ''), COALESCE(especificacoes, '{}')
			FROM ` + t + ` WHERE id = $1`,
		pageSQL: `SELECT id, COALESCE(titulo, ''), COALESCE(descricao, ''), COALESCE(especificacoes, '{}')
			FROM ` + t + ` WHERE id > $1 ORDER BY id LIMIT $2`,
		pageSize: pageSize,
	}
}

// Ping checks connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// GetByID returns the current listing or domain.ErrRecordNotFound.
func (r *Repo) GetByID(ctx context.Context, id string) (listing.Record, error) {
	var rec listing.Record
	err := r.db.QueryRowContext(ctx, r.getSQL, id).Scan(
		&rec.ID, &rec.Title, &rec.Description, pq.Array(&rec.Specifications),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return listing.Record{}, fmt.Errorf("listing %s: %w", id, domain.ErrRecordNotFound)
	}
	if err != nil {
		return listing.Record{}, fmt.Errorf("get listing %s: %w", id, err)
	}
	return rec, nil
}

// ListPage returns up to limit listings with id > afterID, ordered by id.
// limit <= 0 uses the configured page size.
func (r *Repo) ListPage(ctx context.Context, afterID string, limit int) ([]listing.Record, error) {
	if limit <= 0 {
		limit = r.pageSize
	}

	rows, err := r.db.QueryContext(ctx, r.pageSQL, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list listings after %q: %w", afterID, err)
	}
	defer rows.Close()

	var out []listing.Record
	for rows.Next() {
		var rec listing.Record
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, pq.Array(&rec.Specifications)); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return out, nil
}
