package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents as JSONB rows in the documents table (see database.Migrate).
// Documents are encoded with their json tags.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connected pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Insert implements Store.
func (p *Postgres) Insert(ctx context.Context, collection string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	const q = `INSERT INTO documents (collection, doc) VALUES ($1, $2::jsonb)`
	if _, err := p.pool.Exec(ctx, q, collection, string(raw)); err != nil {
		return fmt.Errorf("postgres insert into %s: %w", collection, err)
	}
	return nil
}

// FindOne implements Store.
func (p *Postgres) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	match, err := json.Marshal(filter)
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}
	const q = `SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY id LIMIT 1`
	var raw []byte
	err = p.pool.QueryRow(ctx, q, collection, string(match)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoDocument
	}
	if err != nil {
		return fmt.Errorf("postgres find in %s: %w", collection, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// UpdateOne implements Store. Rows whose fields already hold the new values are not counted.
func (p *Postgres) UpdateOne(ctx context.Context, collection string, filter Filter, set Fields) (int64, error) {
	match, err := json.Marshal(filter)
	if err != nil {
		return 0, fmt.Errorf("marshal filter: %w", err)
	}
	patch, err := json.Marshal(set)
	if err != nil {
		return 0, fmt.Errorf("marshal fields: %w", err)
	}
	const q = `UPDATE documents SET doc = doc || $3::jsonb, updated_at = NOW()
		WHERE id = (SELECT id FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY id LIMIT 1 FOR UPDATE)
		AND NOT (doc @> $3::jsonb)`
	tag, err := p.pool.Exec(ctx, q, collection, string(match), string(patch))
	if err != nil {
		return 0, fmt.Errorf("postgres update in %s: %w", collection, err)
	}
	return tag.RowsAffected(), nil
}

// Close implements Store.
func (p *Postgres) Close(context.Context) error {
	p.pool.Close()
	return nil
}
