package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEngineerRepository implements domain.EngineerRepository using
// PostgreSQL.
type PostgresEngineerRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEngineerRepository creates a new PostgreSQL engineer
// repository.
func NewPostgresEngineerRepository(pool *pgxpool.Pool) *PostgresEngineerRepository {
	return &PostgresEngineerRepository{pool: pool}
}

// Save upserts an engineer.
func (r *PostgresEngineerRepository) Save(ctx context.Context, eng *domain.Engineer) error {
	query := `
		INSERT INTO engineers (id, name, region_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			region_id = EXCLUDED.region_id,
			user_id = EXCLUDED.user_id,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, eng.ID, eng.Name, eng.RegionID, eng.UserID); err != nil {
		return fmt.Errorf("save engineer: %w", err)
	}
	return nil
}

// FindByID retrieves an engineer by ID.
func (r *PostgresEngineerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Engineer, error) {
	query := `SELECT id, name, region_id, user_id, created_at, updated_at FROM engineers WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), fmt.Sprintf("engineer %s", id))
}

// FindByUserID retrieves the engineer linked to a user account.
func (r *PostgresEngineerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Engineer, error) {
	query := `SELECT id, name, region_id, user_id, created_at, updated_at FROM engineers WHERE user_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, userID), fmt.Sprintf("engineer for user %s", userID))
}

// List retrieves all engineers, ordered by name.
func (r *PostgresEngineerRepository) List(ctx context.Context) ([]*domain.Engineer, error) {
	query := `SELECT id, name, region_id, user_id, created_at, updated_at FROM engineers ORDER BY name`
	return r.queryMany(ctx, query)
}

// ListByRegion retrieves one region's engineers, ordered by name.
func (r *PostgresEngineerRepository) ListByRegion(ctx context.Context, regionID uuid.UUID) ([]*domain.Engineer, error) {
	query := `SELECT id, name, region_id, user_id, created_at, updated_at FROM engineers WHERE region_id = $1 ORDER BY name`
	return r.queryMany(ctx, query, regionID)
}

// Delete removes an engineer; their time slots cascade.
func (r *PostgresEngineerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM engineers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete engineer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: engineer %s", domain.ErrNotFound, id)
	}
	return nil
}

// SaveSlot upserts one work window.
func (r *PostgresEngineerRepository) SaveSlot(ctx context.Context, slot *domain.TimeSlot) error {
	query := `
		INSERT INTO time_slots (id, engineer_id, slot_date, start_hour, end_hour)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			slot_date = EXCLUDED.slot_date,
			start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour
	`
	_, err := r.pool.Exec(ctx, query, slot.ID, slot.EngineerID, slot.Date.Time, slot.StartHour, slot.EndHour)
	if err != nil {
		return fmt.Errorf("save slot: %w", err)
	}
	return nil
}

// DeleteSlot removes one work window.
func (r *PostgresEngineerRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: slot %s", domain.ErrNotFound, id)
	}
	return nil
}

// SlotsInRange returns work windows between from and to inclusive, for the
// given engineers or everyone when the list is empty.
func (r *PostgresEngineerRepository) SlotsInRange(ctx context.Context, engineerIDs []uuid.UUID, from, to domain.Day) ([]*domain.TimeSlot, error) {
	query := `
		SELECT id, engineer_id, slot_date, start_hour, end_hour
		FROM time_slots
		WHERE slot_date >= $1 AND slot_date <= $2
	`
	args := []any{from.Time, to.Time}
	if len(engineerIDs) > 0 {
		args = append(args, engineerIDs)
		query += ` AND engineer_id = ANY($3)`
	}
	query += ` ORDER BY slot_date, start_hour`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	var out []*domain.TimeSlot
	for rows.Next() {
		var s domain.TimeSlot
		var date time.Time
		if err := rows.Scan(&s.ID, &s.EngineerID, &date, &s.StartHour, &s.EndHour); err != nil {
			return nil, fmt.Errorf("load slots: %w", err)
		}
		s.Date = domain.NewDay(date.UTC())
		out = append(out, &s)
	}
	return out, rows.Err()
}

// OccupiedOn returns one engineer-day's busy intervals from active chunks,
// with each interval's effective data center for travel math.
func (r *PostgresEngineerRepository) OccupiedOn(ctx context.Context, engineerID uuid.UUID, date domain.Day) ([]domain.OccupiedInterval, error) {
	query := `
		SELECT c.assigned_start_hour,
		       c.assigned_start_hour + COALESCE(SUM(t.estimated_hours * t.quantity), 0),
		       COALESCE(c.data_center_id, w.data_center_id)
		FROM work_chunks c
		JOIN works w ON w.id = c.work_id
		LEFT JOIN work_tasks t ON t.chunk_id = c.id
		WHERE c.assigned_engineer_id = $1
		  AND c.assigned_date = $2
		  AND c.status IN ('planned', 'assigned', 'in_progress')
		GROUP BY c.id, w.data_center_id
		ORDER BY c.assigned_start_hour
	`

	rows, err := r.pool.Query(ctx, query, engineerID, date.Time)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	defer rows.Close()

	var out []domain.OccupiedInterval
	for rows.Next() {
		var iv domain.OccupiedInterval
		if err := rows.Scan(&iv.Start, &iv.End, &iv.DataCenterID); err != nil {
			return nil, fmt.Errorf("load occupancy: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// AssignedHoursInRange sums active chunk hours per engineer per day.
func (r *PostgresEngineerRepository) AssignedHoursInRange(ctx context.Context, engineerIDs []uuid.UUID, from, to domain.Day) (map[uuid.UUID]map[string]int, error) {
	query := `
		SELECT c.assigned_engineer_id, c.assigned_date,
		       COALESCE(SUM(t.estimated_hours * t.quantity), 0)
		FROM work_chunks c
		LEFT JOIN work_tasks t ON t.chunk_id = c.id
		WHERE c.assigned_engineer_id IS NOT NULL
		  AND c.assigned_date >= $1 AND c.assigned_date <= $2
		  AND c.status IN ('planned', 'assigned', 'in_progress')
	`
	args := []any{from.Time, to.Time}
	if len(engineerIDs) > 0 {
		args = append(args, engineerIDs)
		query += ` AND c.assigned_engineer_id = ANY($3)`
	}
	query += ` GROUP BY c.assigned_engineer_id, c.assigned_date`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load assigned hours: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]map[string]int)
	for rows.Next() {
		var engineerID uuid.UUID
		var date time.Time
		var hours int
		if err := rows.Scan(&engineerID, &date, &hours); err != nil {
			return nil, fmt.Errorf("load assigned hours: %w", err)
		}
		byDay := out[engineerID]
		if byDay == nil {
			byDay = make(map[string]int)
			out[engineerID] = byDay
		}
		byDay[domain.NewDay(date.UTC()).String()] += hours
	}
	return out, rows.Err()
}

func (r *PostgresEngineerRepository) scanOne(row pgx.Row, what string) (*domain.Engineer, error) {
	var e domain.Engineer
	err := row.Scan(&e.ID, &e.Name, &e.RegionID, &e.UserID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, what)
		}
		return nil, fmt.Errorf("find engineer: %w", err)
	}
	return &e, nil
}

func (r *PostgresEngineerRepository) queryMany(ctx context.Context, query string, args ...any) ([]*domain.Engineer, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list engineers: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Engineer, 0)
	for rows.Next() {
		var e domain.Engineer
		if err := rows.Scan(&e.ID, &e.Name, &e.RegionID, &e.UserID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list engineers: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
