package db

import (
	"context"
	"time"
)

const upsertMetadata = `
INSERT INTO collection_metadata (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

func (q *Queries) UpsertMetadata(ctx context.Context, key, value string, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertMetadata, key, value, updatedAt)
	return err
}

const getMetadata = `SELECT key, value, updated_at FROM collection_metadata WHERE key = ?`

func (q *Queries) GetMetadata(ctx context.Context, key string) (CollectionMetadatum, error) {
	var m CollectionMetadatum
	err := q.db.QueryRowContext(ctx, getMetadata, key).Scan(&m.Key, &m.Value, &m.UpdatedAt)
	return m, err
}

const listMetadata = `SELECT key, value, updated_at FROM collection_metadata ORDER BY key`

func (q *Queries) ListMetadata(ctx context.Context) ([]CollectionMetadatum, error) {
	rows, err := q.db.QueryContext(ctx, listMetadata)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CollectionMetadatum
	for rows.Next() {
		var m CollectionMetadatum
		if err := rows.Scan(&m.Key, &m.Value, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
