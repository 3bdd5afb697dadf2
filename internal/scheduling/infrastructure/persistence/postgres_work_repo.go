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

// PostgresWorkRepository implements domain.WorkRepository using PostgreSQL.
type PostgresWorkRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresWorkRepository creates a new PostgreSQL work repository.
func NewPostgresWorkRepository(pool *pgxpool.Pool) *PostgresWorkRepository {
	return &PostgresWorkRepository{pool: pool}
}

type workRow struct {
	ID            uuid.UUID
	Name          string
	Description   string
	Type          string
	Priority      string
	Status        string
	DueDate       *time.Time
	DataCenterID  *uuid.UUID
	TargetDate    *time.Time
	TargetTime    *int
	DurationHours *int
	ContactInfo   string
	Version       int
	AuthorID      *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type chunkRow struct {
	ID                 uuid.UUID
	WorkID             uuid.UUID
	Title              string
	Description        string
	ChunkOrder         int
	Status             string
	DataCenterID       *uuid.UUID
	Version            int
	AssignedEngineerID *uuid.UUID
	AssignedDate       *time.Time
	AssignedStartHour  *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const workColumns = `
	id, name, description, work_type, priority, status,
	due_date, data_center_id, target_date, target_time, duration_hours,
	contact_info, version, author_id, created_at, updated_at
`

const chunkColumns = `
	id, work_id, title, description, chunk_order, status, data_center_id,
	version, assigned_engineer_id, assigned_date, assigned_start_hour,
	created_at, updated_at
`

// Save upserts a work and bumps its version. The update only lands when
// the stored version still matches the one the caller read; a lost race
// surfaces as ErrConflict.
func (r *PostgresWorkRepository) Save(ctx context.Context, work *domain.Work) error {
	query := `
		INSERT INTO works (
			id, name, description, work_type, priority, status,
			due_date, data_center_id, target_date, target_time, duration_hours,
			contact_info, version, author_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			work_type = EXCLUDED.work_type,
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			due_date = EXCLUDED.due_date,
			data_center_id = EXCLUDED.data_center_id,
			target_date = EXCLUDED.target_date,
			target_time = EXCLUDED.target_time,
			duration_hours = EXCLUDED.duration_hours,
			contact_info = EXCLUDED.contact_info,
			version = works.version + 1,
			updated_at = NOW()
		WHERE works.version = EXCLUDED.version - 1
		RETURNING version
	`

	err := r.pool.QueryRow(ctx, query,
		work.ID,
		work.Name,
		work.Description,
		string(work.Type),
		string(work.Priority),
		string(work.Status),
		dayPtr(work.DueDate),
		work.DataCenterID,
		dayPtr(work.TargetDate),
		work.TargetTime,
		work.DurationHours,
		work.ContactInfo,
		work.Version+1,
		work.AuthorID,
	).Scan(&work.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: work %s version %d is stale", domain.ErrConflict, work.ID, work.Version)
		}
		return fmt.Errorf("save work: %w", err)
	}
	return nil
}

// FindByID retrieves a work by its ID.
func (r *PostgresWorkRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE id = $1`

	row, err := scanWork(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: work %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("find work: %w", err)
	}
	return row, nil
}

// List retrieves works matching the filter, newest first.
func (r *PostgresWorkRepository) List(ctx context.Context, filter domain.WorkFilter) ([]*domain.Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Statuses) > 0 {
		query += ` AND status = ANY(` + arg(statusStrings(filter.Statuses)) + `)`
	}
	if len(filter.Types) > 0 {
		query += ` AND work_type = ANY(` + arg(typeStrings(filter.Types)) + `)`
	}
	if len(filter.Priorities) > 0 {
		query += ` AND priority = ANY(` + arg(priorityStrings(filter.Priorities)) + `)`
	}
	if filter.AuthorID != nil {
		query += ` AND author_id = ` + arg(*filter.AuthorID)
	}
	if filter.EngineerID != nil {
		query += ` AND id IN (SELECT work_id FROM work_chunks WHERE assigned_engineer_id = ` + arg(*filter.EngineerID) + `)`
	}
	if filter.Search != "" {
		query += ` AND (name ILIKE ` + arg("%"+filter.Search+"%") + ` OR description ILIKE ` + arg("%"+filter.Search+"%") + `)`
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list works: %w", err)
	}
	defer rows.Close()

	works := make([]*domain.Work, 0)
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("list works: %w", err)
		}
		works = append(works, w)
	}
	return works, rows.Err()
}

// Delete removes a work; chunks, tasks and links cascade.
func (r *PostgresWorkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM works WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete work: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: work %s", domain.ErrNotFound, id)
	}
	return nil
}

// SaveChunk upserts a chunk and bumps its version, with the same stale
// version guard as Save. Tasks are persisted separately via SaveTask.
func (r *PostgresWorkRepository) SaveChunk(ctx context.Context, chunk *domain.WorkChunk) error {
	query := `
		INSERT INTO work_chunks (
			id, work_id, title, description, chunk_order, status, data_center_id,
			version, assigned_engineer_id, assigned_date, assigned_start_hour,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			chunk_order = EXCLUDED.chunk_order,
			status = EXCLUDED.status,
			data_center_id = EXCLUDED.data_center_id,
			version = work_chunks.version + 1,
			assigned_engineer_id = EXCLUDED.assigned_engineer_id,
			assigned_date = EXCLUDED.assigned_date,
			assigned_start_hour = EXCLUDED.assigned_start_hour,
			updated_at = NOW()
		WHERE work_chunks.version = EXCLUDED.version - 1
		RETURNING version
	`

	err := r.pool.QueryRow(ctx, query,
		chunk.ID,
		chunk.WorkID,
		chunk.Title,
		chunk.Description,
		chunk.Order,
		string(chunk.Status),
		chunk.DataCenterID,
		chunk.Version+1,
		chunk.AssignedEngineerID,
		dayPtr(chunk.AssignedDate),
		chunk.AssignedStartHour,
	).Scan(&chunk.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: chunk %s version %d is stale", domain.ErrConflict, chunk.ID, chunk.Version)
		}
		return fmt.Errorf("save chunk: %w", err)
	}
	return nil
}

// FindChunkByID retrieves a chunk with its tasks.
func (r *PostgresWorkRepository) FindChunkByID(ctx context.Context, id uuid.UUID) (*domain.WorkChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM work_chunks WHERE id = $1`

	chunk, err := scanChunk(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: chunk %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("find chunk: %w", err)
	}

	tasks, err := r.loadTasksForChunks(ctx, []uuid.UUID{chunk.ID})
	if err != nil {
		return nil, err
	}
	chunk.Tasks = tasks[chunk.ID]
	return chunk, nil
}

// FindChunksByWork retrieves the chunks of a work in chunk order, tasks
// included.
func (r *PostgresWorkRepository) FindChunksByWork(ctx context.Context, workID uuid.UUID) ([]*domain.WorkChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM work_chunks WHERE work_id = $1 ORDER BY chunk_order`

	rows, err := r.pool.Query(ctx, query, workID)
	if err != nil {
		return nil, fmt.Errorf("find chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*domain.WorkChunk
	var ids []uuid.UUID
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("find chunks: %w", err)
		}
		chunks = append(chunks, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tasks, err := r.loadTasksForChunks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		c.Tasks = tasks[c.ID]
	}
	return chunks, nil
}

// DeleteChunk removes a chunk; its tasks fall back to unchunked.
func (r *PostgresWorkRepository) DeleteChunk(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM work_chunks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: chunk %s", domain.ErrNotFound, id)
	}
	return nil
}

// UnassignedChunks returns created chunks joined with their works, ordered
// by work then chunk order.
func (r *PostgresWorkRepository) UnassignedChunks(ctx context.Context, workIDs []uuid.UUID) ([]domain.ChunkWithWork, error) {
	query := `
		SELECT ` + prefixed("c", chunkColumns) + `, ` + prefixed("w", workColumns) + `
		FROM work_chunks c
		JOIN works w ON w.id = c.work_id
		WHERE c.status = 'created'
		  AND w.status NOT IN ('draft', 'completed', 'documented')
	`
	var args []any
	if len(workIDs) > 0 {
		args = append(args, workIDs)
		query += ` AND c.work_id = ANY($1)`
	}
	query += ` ORDER BY w.id, c.chunk_order`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load unassigned chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.ChunkWithWork
	var chunkIDs []uuid.UUID
	works := make(map[uuid.UUID]*domain.Work)
	for rows.Next() {
		chunk, work, err := scanChunkWithWork(rows)
		if err != nil {
			return nil, fmt.Errorf("load unassigned chunks: %w", err)
		}
		if cached, ok := works[work.ID]; ok {
			work = cached
		} else {
			works[work.ID] = work
		}
		out = append(out, domain.ChunkWithWork{Chunk: chunk, Work: work})
		chunkIDs = append(chunkIDs, chunk.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tasks, err := r.loadTasksForChunks(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}
	for _, item := range out {
		item.Chunk.Tasks = tasks[item.Chunk.ID]
	}
	return out, nil
}

// AssignChunk writes one assignment triple under an optimistic version
// check, re-validating the travel-aware overlap invariant inside the same
// transaction.
func (r *PostgresWorkRepository) AssignChunk(ctx context.Context, chunkID uuid.UUID, expectedVersion int, engineerID uuid.UUID, date domain.Day, startHour int, travel domain.TravelFunc) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback(ctx)

	chunk, err := r.lockChunk(ctx, tx, chunkID)
	if err != nil {
		return err
	}
	if chunk.Version != expectedVersion {
		return fmt.Errorf("%w: chunk %s version %d, expected %d",
			domain.ErrConflict, chunkID, chunk.Version, expectedVersion)
	}

	if err := r.validateAssignment(ctx, tx, chunk, engineerID, date, startHour, travel); err != nil {
		return err
	}

	if err := r.writeAssignment(ctx, tx, chunkID, engineerID, date, startHour); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AssignChunks applies a batch of assignment writes in one transaction.
// Chunks no longer in created status are skipped; any overlap violation
// aborts the whole batch.
func (r *PostgresWorkRepository) AssignChunks(ctx context.Context, writes []domain.ChunkAssignmentWrite, travel domain.TravelFunc) ([]uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch assign: %w", err)
	}
	defer tx.Rollback(ctx)

	var applied []uuid.UUID
	for _, w := range writes {
		chunk, err := r.lockChunk(ctx, tx, w.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if chunk.Status != domain.ChunkStatusCreated {
			continue
		}

		if err := r.validateAssignment(ctx, tx, chunk, w.EngineerID, w.Date, w.StartHour, travel); err != nil {
			return nil, err
		}
		if err := r.writeAssignment(ctx, tx, w.ChunkID, w.EngineerID, w.Date, w.StartHour); err != nil {
			return nil, err
		}
		applied = append(applied, w.ChunkID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch assign: %w", err)
	}
	return applied, nil
}

// ClearChunkAssignment nulls the triple and resets the chunk to created.
// Clearing an unassigned chunk is a no-op.
func (r *PostgresWorkRepository) ClearChunkAssignment(ctx context.Context, chunkID uuid.UUID) error {
	query := `
		UPDATE work_chunks SET
			assigned_engineer_id = NULL,
			assigned_date = NULL,
			assigned_start_hour = NULL,
			status = 'created',
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND assigned_engineer_id IS NOT NULL
	`
	if _, err := r.pool.Exec(ctx, query, chunkID); err != nil {
		return fmt.Errorf("clear assignment: %w", err)
	}
	return nil
}

func (r *PostgresWorkRepository) lockChunk(ctx context.Context, tx pgx.Tx, chunkID uuid.UUID) (*domain.WorkChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM work_chunks WHERE id = $1 FOR UPDATE`
	chunk, err := scanChunk(tx.QueryRow(ctx, query, chunkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: chunk %s", domain.ErrNotFound, chunkID)
		}
		return nil, fmt.Errorf("lock chunk: %w", err)
	}

	tasks, err := r.loadTasksForChunksTx(ctx, tx, []uuid.UUID{chunkID})
	if err != nil {
		return nil, err
	}
	chunk.Tasks = tasks[chunkID]
	return chunk, nil
}

// validateAssignment re-checks the overlap invariant against the
// engineer's committed day inside the write transaction.
func (r *PostgresWorkRepository) validateAssignment(ctx context.Context, tx pgx.Tx, chunk *domain.WorkChunk, engineerID uuid.UUID, date domain.Day, startHour int, travel domain.TravelFunc) error {
	existing, err := occupiedOnTx(ctx, tx, engineerID, date, chunk.ID)
	if err != nil {
		return err
	}

	var workDC *uuid.UUID
	err = tx.QueryRow(ctx, `SELECT data_center_id FROM works WHERE id = $1`, chunk.WorkID).Scan(&workDC)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("load work dc: %w", err)
	}
	targetDC := chunk.DataCenterID
	if targetDC == nil {
		targetDC = workDC
	}

	proposed := domain.OccupiedInterval{
		Start:        startHour,
		End:          startHour + chunk.DurationHours(),
		DataCenterID: targetDC,
	}
	return domain.ValidateNoOverlap(existing, proposed, travel)
}

func (r *PostgresWorkRepository) writeAssignment(ctx context.Context, tx pgx.Tx, chunkID, engineerID uuid.UUID, date domain.Day, startHour int) error {
	query := `
		UPDATE work_chunks SET
			assigned_engineer_id = $2,
			assigned_date = $3,
			assigned_start_hour = $4,
			status = 'planned',
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, chunkID, engineerID, date.Time, startHour); err != nil {
		return fmt.Errorf("write assignment: %w", err)
	}
	return nil
}

// occupiedOnTx loads one engineer-day's busy intervals from active chunks,
// excluding the chunk being written.
func occupiedOnTx(ctx context.Context, tx pgx.Tx, engineerID uuid.UUID, date domain.Day, excludeChunk uuid.UUID) ([]domain.OccupiedInterval, error) {
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
		  AND c.id != $3
		GROUP BY c.id, w.data_center_id
		ORDER BY c.assigned_start_hour
	`

	rows, err := tx.Query(ctx, query, engineerID, date.Time, excludeChunk)
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

// SaveTask upserts one work task.
func (r *PostgresWorkRepository) SaveTask(ctx context.Context, task *domain.WorkTask) error {
	query := `
		INSERT INTO work_tasks (
			id, work_id, chunk_id, title, data_center_id, estimated_hours,
			quantity, task_order, status, completion_note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			chunk_id = EXCLUDED.chunk_id,
			title = EXCLUDED.title,
			data_center_id = EXCLUDED.data_center_id,
			estimated_hours = EXCLUDED.estimated_hours,
			quantity = EXCLUDED.quantity,
			task_order = EXCLUDED.task_order,
			status = EXCLUDED.status,
			completion_note = EXCLUDED.completion_note,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.WorkID,
		task.ChunkID,
		task.Title,
		task.DataCenterID,
		task.EstimatedHours,
		task.Quantity,
		task.Order,
		string(task.Status),
		task.CompletionNote,
	)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// FindTasksByWork retrieves a work's tasks in task order.
func (r *PostgresWorkRepository) FindTasksByWork(ctx context.Context, workID uuid.UUID) ([]*domain.WorkTask, error) {
	query := `
		SELECT id, work_id, chunk_id, title, data_center_id, estimated_hours,
		       quantity, task_order, status, completion_note, created_at, updated_at
		FROM work_tasks
		WHERE work_id = $1
		ORDER BY task_order
	`
	rows, err := r.pool.Query(ctx, query, workID)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer rows.Close()

	var out []*domain.WorkTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("find tasks: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTask removes one task.
func (r *PostgresWorkRepository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM work_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	return nil
}

// SaveLink inserts one chunk link.
func (r *PostgresWorkRepository) SaveLink(ctx context.Context, link *domain.ChunkLink) error {
	query := `
		INSERT INTO chunk_links (id, chunk_id, linked_chunk_id, link_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			link_type = EXCLUDED.link_type,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query, link.ID, link.ChunkID, link.LinkedChunkID, string(link.Type))
	if err != nil {
		return fmt.Errorf("save link: %w", err)
	}
	return nil
}

// DeleteLink removes one chunk link.
func (r *PostgresWorkRepository) DeleteLink(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM chunk_links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: link %s", domain.ErrNotFound, id)
	}
	return nil
}

// FindLinksByWork returns all edges between chunks of one work.
func (r *PostgresWorkRepository) FindLinksByWork(ctx context.Context, workID uuid.UUID) ([]*domain.ChunkLink, error) {
	query := `
		SELECT l.id, l.chunk_id, l.linked_chunk_id, l.link_type, l.created_at, l.updated_at
		FROM chunk_links l
		JOIN work_chunks c ON c.id = l.chunk_id
		WHERE c.work_id = $1
	`
	return r.queryLinks(ctx, query, workID)
}

// FindLinksByChunks returns edges touching any of the given chunks.
func (r *PostgresWorkRepository) FindLinksByChunks(ctx context.Context, chunkIDs []uuid.UUID) ([]*domain.ChunkLink, error) {
	query := `
		SELECT id, chunk_id, linked_chunk_id, link_type, created_at, updated_at
		FROM chunk_links
		WHERE chunk_id = ANY($1) OR linked_chunk_id = ANY($1)
	`
	return r.queryLinks(ctx, query, chunkIDs)
}

func (r *PostgresWorkRepository) queryLinks(ctx context.Context, query string, arg any) ([]*domain.ChunkLink, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("find links: %w", err)
	}
	defer rows.Close()

	var out []*domain.ChunkLink
	for rows.Next() {
		var l domain.ChunkLink
		var typ string
		if err := rows.Scan(&l.ID, &l.ChunkID, &l.LinkedChunkID, &typ, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("find links: %w", err)
		}
		l.Type = domain.LinkType(typ)
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (r *PostgresWorkRepository) loadTasksForChunks(ctx context.Context, chunkIDs []uuid.UUID) (map[uuid.UUID][]domain.WorkTask, error) {
	if len(chunkIDs) == 0 {
		return map[uuid.UUID][]domain.WorkTask{}, nil
	}
	query := `
		SELECT id, work_id, chunk_id, title, data_center_id, estimated_hours,
		       quantity, task_order, status, completion_note, created_at, updated_at
		FROM work_tasks
		WHERE chunk_id = ANY($1)
		ORDER BY task_order
	`
	rows, err := r.pool.Query(ctx, query, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("load chunk tasks: %w", err)
	}
	defer rows.Close()
	return collectTasksByChunk(rows)
}

func (r *PostgresWorkRepository) loadTasksForChunksTx(ctx context.Context, tx pgx.Tx, chunkIDs []uuid.UUID) (map[uuid.UUID][]domain.WorkTask, error) {
	query := `
		SELECT id, work_id, chunk_id, title, data_center_id, estimated_hours,
		       quantity, task_order, status, completion_note, created_at, updated_at
		FROM work_tasks
		WHERE chunk_id = ANY($1)
		ORDER BY task_order
	`
	rows, err := tx.Query(ctx, query, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("load chunk tasks: %w", err)
	}
	defer rows.Close()
	return collectTasksByChunk(rows)
}

func collectTasksByChunk(rows pgx.Rows) (map[uuid.UUID][]domain.WorkTask, error) {
	out := make(map[uuid.UUID][]domain.WorkTask)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("load chunk tasks: %w", err)
		}
		if t.ChunkID != nil {
			out[*t.ChunkID] = append(out[*t.ChunkID], *t)
		}
	}
	return out, rows.Err()
}

func scanWork(row pgx.Row) (*domain.Work, error) {
	var r workRow
	err := row.Scan(
		&r.ID, &r.Name, &r.Description, &r.Type, &r.Priority, &r.Status,
		&r.DueDate, &r.DataCenterID, &r.TargetDate, &r.TargetTime, &r.DurationHours,
		&r.ContactInfo, &r.Version, &r.AuthorID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return workFromRow(r), nil
}

func workFromRow(r workRow) *domain.Work {
	return &domain.Work{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		Type:          domain.WorkType(r.Type),
		Priority:      domain.Priority(r.Priority),
		Status:        domain.WorkStatus(r.Status),
		DueDate:       dayFromTime(r.DueDate),
		DataCenterID:  r.DataCenterID,
		TargetDate:    dayFromTime(r.TargetDate),
		TargetTime:    r.TargetTime,
		DurationHours: r.DurationHours,
		ContactInfo:   r.ContactInfo,
		Version:       r.Version,
		AuthorID:      r.AuthorID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func scanChunk(row pgx.Row) (*domain.WorkChunk, error) {
	var r chunkRow
	err := row.Scan(
		&r.ID, &r.WorkID, &r.Title, &r.Description, &r.ChunkOrder, &r.Status,
		&r.DataCenterID, &r.Version, &r.AssignedEngineerID, &r.AssignedDate,
		&r.AssignedStartHour, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return chunkFromRow(r), nil
}

func scanChunkWithWork(row pgx.Row) (*domain.WorkChunk, *domain.Work, error) {
	var c chunkRow
	var w workRow
	err := row.Scan(
		&c.ID, &c.WorkID, &c.Title, &c.Description, &c.ChunkOrder, &c.Status,
		&c.DataCenterID, &c.Version, &c.AssignedEngineerID, &c.AssignedDate,
		&c.AssignedStartHour, &c.CreatedAt, &c.UpdatedAt,
		&w.ID, &w.Name, &w.Description, &w.Type, &w.Priority, &w.Status,
		&w.DueDate, &w.DataCenterID, &w.TargetDate, &w.TargetTime, &w.DurationHours,
		&w.ContactInfo, &w.Version, &w.AuthorID, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, nil, err
	}
	return chunkFromRow(c), workFromRow(w), nil
}

func chunkFromRow(r chunkRow) *domain.WorkChunk {
	return &domain.WorkChunk{
		ID:                 r.ID,
		WorkID:             r.WorkID,
		Title:              r.Title,
		Description:        r.Description,
		Order:              r.ChunkOrder,
		Status:             domain.ChunkStatus(r.Status),
		DataCenterID:       r.DataCenterID,
		Version:            r.Version,
		AssignedEngineerID: r.AssignedEngineerID,
		AssignedDate:       dayFromTime(r.AssignedDate),
		AssignedStartHour:  r.AssignedStartHour,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func scanTask(row pgx.Row) (*domain.WorkTask, error) {
	var t domain.WorkTask
	var status string
	err := row.Scan(
		&t.ID, &t.WorkID, &t.ChunkID, &t.Title, &t.DataCenterID, &t.EstimatedHours,
		&t.Quantity, &t.Order, &status, &t.CompletionNote, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	return &t, nil
}

func dayPtr(d *domain.Day) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func dayFromTime(t *time.Time) *domain.Day {
	if t == nil {
		return nil
	}
	d := domain.NewDay(t.UTC())
	return &d
}

func prefixed(alias, columns string) string {
	out := ""
	for i, col := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + col
	}
	return out
}

func splitColumns(columns string) []string {
	var out []string
	field := ""
	for _, r := range columns {
		switch r {
		case ',':
			out = append(out, field)
			field = ""
		case ' ', '\t', '\n':
		default:
			field += string(r)
		}
	}
	if field != "" {
		out = append(out, field)
	}
	return out
}

func statusStrings(in []domain.WorkStatus) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func typeStrings(in []domain.WorkType) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func priorityStrings(in []domain.Priority) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
