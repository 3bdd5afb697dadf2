package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectoryRepository implements domain.DirectoryRepository using
// PostgreSQL: regions, data centers and the travel-time matrix.
type PostgresDirectoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectoryRepository creates a new PostgreSQL directory
// repository.
func NewPostgresDirectoryRepository(pool *pgxpool.Pool) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{pool: pool}
}

// SaveRegion upserts a region.
func (r *PostgresDirectoryRepository) SaveRegion(ctx context.Context, region *domain.Region) error {
	query := `
		INSERT INTO regions (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, region.ID, region.Name); err != nil {
		return fmt.Errorf("save region: %w", err)
	}
	return nil
}

// FindRegionByID retrieves a region by ID.
func (r *PostgresDirectoryRepository) FindRegionByID(ctx context.Context, id uuid.UUID) (*domain.Region, error) {
	var region domain.Region
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM regions WHERE id = $1`, id,
	).Scan(&region.ID, &region.Name, &region.CreatedAt, &region.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: region %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("find region: %w", err)
	}
	return &region, nil
}

// ListRegions retrieves all regions, ordered by name.
func (r *PostgresDirectoryRepository) ListRegions(ctx context.Context) ([]*domain.Region, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Region, 0)
	for rows.Next() {
		var region domain.Region
		if err := rows.Scan(&region.ID, &region.Name, &region.CreatedAt, &region.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list regions: %w", err)
		}
		out = append(out, &region)
	}
	return out, rows.Err()
}

// DeleteRegion removes a region. Fails while data centers or engineers
// still reference it.
func (r *PostgresDirectoryRepository) DeleteRegion(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM regions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete region: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: region %s", domain.ErrNotFound, id)
	}
	return nil
}

// SaveDataCenter upserts a data center.
func (r *PostgresDirectoryRepository) SaveDataCenter(ctx context.Context, dc *domain.DataCenter) error {
	query := `
		INSERT INTO data_centers (id, name, description, region_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			region_id = EXCLUDED.region_id,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, dc.ID, dc.Name, dc.Description, dc.RegionID); err != nil {
		return fmt.Errorf("save data center: %w", err)
	}
	return nil
}

// FindDataCenterByID retrieves a data center by ID.
func (r *PostgresDirectoryRepository) FindDataCenterByID(ctx context.Context, id uuid.UUID) (*domain.DataCenter, error) {
	var dc domain.DataCenter
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, region_id, created_at, updated_at FROM data_centers WHERE id = $1`, id,
	).Scan(&dc.ID, &dc.Name, &dc.Description, &dc.RegionID, &dc.CreatedAt, &dc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: data center %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("find data center: %w", err)
	}
	return &dc, nil
}

// ListDataCenters retrieves all data centers, ordered by name.
func (r *PostgresDirectoryRepository) ListDataCenters(ctx context.Context) ([]*domain.DataCenter, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, region_id, created_at, updated_at FROM data_centers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list data centers: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.DataCenter, 0)
	for rows.Next() {
		var dc domain.DataCenter
		if err := rows.Scan(&dc.ID, &dc.Name, &dc.Description, &dc.RegionID, &dc.CreatedAt, &dc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list data centers: %w", err)
		}
		out = append(out, &dc)
	}
	return out, rows.Err()
}

// DeleteDataCenter removes a data center.
func (r *PostgresDirectoryRepository) DeleteDataCenter(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM data_centers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete data center: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: data center %s", domain.ErrNotFound, id)
	}
	return nil
}

// SaveDistance upserts one directed travel-time entry. The ordered pair is
// unique; writing an existing pair overwrites its duration.
func (r *PostgresDirectoryRepository) SaveDistance(ctx context.Context, entry *domain.DistanceEntry) error {
	query := `
		INSERT INTO dc_distances (id, from_dc_id, to_dc_id, duration_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (from_dc_id, to_dc_id) DO UPDATE SET
			duration_minutes = EXCLUDED.duration_minutes,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, entry.ID, entry.FromDC, entry.ToDC, entry.DurationMinutes); err != nil {
		return fmt.Errorf("save distance: %w", err)
	}
	return nil
}

// ListDistances retrieves the whole travel-time matrix.
func (r *PostgresDirectoryRepository) ListDistances(ctx context.Context) ([]domain.DistanceEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, from_dc_id, to_dc_id, duration_minutes, created_at, updated_at FROM dc_distances`)
	if err != nil {
		return nil, fmt.Errorf("list distances: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DistanceEntry, 0)
	for rows.Next() {
		var e domain.DistanceEntry
		if err := rows.Scan(&e.ID, &e.FromDC, &e.ToDC, &e.DurationMinutes, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list distances: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteDistance removes one matrix entry.
func (r *PostgresDirectoryRepository) DeleteDistance(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM dc_distances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete distance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: distance %s", domain.ErrNotFound, id)
	}
	return nil
}
