package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"herostats/internal/db"
	"herostats/internal/domain"
)

type MetadataRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewMetadataRepository(queries *db.Queries, logger zerolog.Logger) *MetadataRepository {
	return &MetadataRepository{queries: queries, logger: logger}
}

// Set writes every key/value pair with the same timestamp. Failures are
// logged and returned; callers treat bookkeeping as best effort.
func (r *MetadataRepository) Set(ctx context.Context, values map[string]string) error {
	now := time.Now().UTC()
	var errs []error
	for k, v := range values {
		if err := r.queries.UpsertMetadata(ctx, k, v, now); err != nil {
			r.logger.Warn().Err(err).Str("key", k).Msg("failed to write collection metadata")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *MetadataRepository) Get(ctx context.Context, key string) (*domain.CollectionMetadata, error) {
	m, err := r.queries.GetMetadata(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.CollectionMetadata{Key: m.Key, Value: m.Value, UpdatedAt: m.UpdatedAt}, nil
}

func (r *MetadataRepository) List(ctx context.Context) ([]domain.CollectionMetadata, error) {
	rows, err := r.queries.ListMetadata(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CollectionMetadata, len(rows))
	for i, m := range rows {
		out[i] = domain.CollectionMetadata{Key: m.Key, Value: m.Value, UpdatedAt: m.UpdatedAt}
	}
	return out, nil
}
