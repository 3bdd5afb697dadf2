package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSessionRepository implements domain.SessionRepository using
// PostgreSQL. Assignments and stats are stored as JSONB: they are a
// preview document, never queried field by field.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionRepository creates a new PostgreSQL session
// repository.
func NewPostgresSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

// Save upserts a planning session.
func (r *PostgresSessionRepository) Save(ctx context.Context, session *domain.PlanningSession) error {
	assignments, err := json.Marshal(session.Assignments)
	if err != nil {
		return fmt.Errorf("marshal assignments: %w", err)
	}
	stats, err := json.Marshal(session.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	query := `
		INSERT INTO planning_sessions (
			id, user_id, strategy, status, assignments, stats, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			assignments = EXCLUDED.assignments,
			stats = EXCLUDED.stats,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`
	_, err = r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		string(session.Strategy),
		string(session.Status),
		assignments,
		stats,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// FindByID retrieves one session.
func (r *PostgresSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PlanningSession, error) {
	query := `
		SELECT id, user_id, strategy, status, assignments, stats, expires_at, created_at, updated_at
		FROM planning_sessions
		WHERE id = $1
	`
	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

// List retrieves sessions newest first, optionally for one user.
func (r *PostgresSessionRepository) List(ctx context.Context, userID *uuid.UUID) ([]*domain.PlanningSession, error) {
	query := `
		SELECT id, user_id, strategy, status, assignments, stats, expires_at, created_at, updated_at
		FROM planning_sessions
	`
	var args []any
	if userID != nil {
		args = append(args, *userID)
		query += ` WHERE user_id = $1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.PlanningSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// Delete removes a session.
func (r *PostgresSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM planning_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return nil
}

// ExpireStale marks draft sessions past their deadline as expired.
func (r *PostgresSessionRepository) ExpireStale(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		UPDATE planning_sessions
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'draft' AND expires_at < NOW()
		RETURNING id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("expire sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("expire sessions: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSession(row pgx.Row) (*domain.PlanningSession, error) {
	var s domain.PlanningSession
	var strategy, status string
	var assignments, stats []byte

	err := row.Scan(&s.ID, &s.UserID, &strategy, &status, &assignments, &stats,
		&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.Strategy = domain.StrategyName(strategy)
	s.Status = domain.SessionStatus(status)
	if len(assignments) > 0 {
		if err := json.Unmarshal(assignments, &s.Assignments); err != nil {
			return nil, fmt.Errorf("unmarshal assignments: %w", err)
		}
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &s.Stats); err != nil {
			return nil, fmt.Errorf("unmarshal stats: %w", err)
		}
	}
	return &s, nil
}
