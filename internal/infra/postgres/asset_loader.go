package postgres

import (
	"context"
	"fmt"

	"atlas-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AssetLoader loads the map catalog and image list from Postgres.
type AssetLoader struct {
	pool *pgxpool.Pool
}

func NewAssetLoader(pool *pgxpool.Pool) *AssetLoader {
	return &AssetLoader{pool: pool}
}

func (l *AssetLoader) LoadCatalog(ctx context.Context) (map[string]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name FROM maps`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	catalog := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan map: %w", err)
		}
		catalog[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalog, nil
}

func (l *AssetLoader) LoadImages(ctx context.Context) ([]domain.ImageRef, error) {
	rows, err := l.pool.Query(ctx, `SELECT path, map_id FROM images ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	defer rows.Close()

	var refs []domain.ImageRef
	for rows.Next() {
		var ref domain.ImageRef
		if err := rows.Scan(&ref.Path, &ref.MapID); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	return refs, nil
}
