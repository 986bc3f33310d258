package repository

import (
	"context"
	"fmt"
	"strings"

	"memory-tracker-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemoryRepository handles database operations for memories.
// Every read and write except Create is scoped by user_id.
type MemoryRepository struct {
	db *pgxpool.Pool
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// MemoryFilter narrows a memory listing. Limit <= 0 returns every row.
type MemoryFilter struct {
	Type   models.MemoryType
	Limit  int
	Offset int
}

const memoryColumns = `id, user_id, title, description, content, date, type, location, people, filter, created_at, updated_at`

// Create creates a new memory
func (r *MemoryRepository) Create(ctx context.Context, memory *models.Memory) error {
	query := `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		memory.ID, memory.UserID, memory.Title, memory.Description, memory.Content,
		memory.Date, string(memory.Type), memory.Location, memory.People,
		string(memory.Filter), memory.CreatedAt, memory.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create memory: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a memory by ID, regardless of owner
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE id = $1`
	memory, err := scanMemory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", translate(err))
	}
	return memory, nil
}

// ListByUserID retrieves a patient's memories, newest date first
func (r *MemoryRepository) ListByUserID(ctx context.Context, userID string, filter MemoryFilter) ([]*models.Memory, int, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	// Get total count
	var total int
	countQuery := `SELECT COUNT(*) FROM memories WHERE ` + clause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count memories: %w", err)
	}

	query := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + clause +
		` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	memories := []*models.Memory{}
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, memory)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating memories: %w", err)
	}

	return memories, total, nil
}

// Update applies patch to the memory with id owned by userID and returns
// the stored row. Concurrent updates overwrite each other.
func (r *MemoryRepository) Update(ctx context.Context, id, userID string, patch models.MemoryPatch) (*models.Memory, error) {
	query := `
		UPDATE memories SET
			title       = COALESCE($3, title),
			description = COALESCE($4, description),
			content     = COALESCE($5, content),
			date        = COALESCE($6, date),
			type        = COALESCE($7, type),
			location    = COALESCE($8, location),
			people      = COALESCE($9, people),
			filter      = COALESCE($10, filter),
			updated_at  = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + memoryColumns

	var memoryType, filter *string
	if patch.Type != nil {
		s := string(*patch.Type)
		memoryType = &s
	}
	if patch.Filter != nil {
		s := string(*patch.Filter)
		filter = &s
	}
	var people []string
	if patch.People != nil {
		people = *patch.People
		if people == nil {
			people = []string{}
		}
	}

	memory, err := scanMemory(r.db.QueryRow(ctx, query,
		id, userID, patch.Title, patch.Description, patch.Content, patch.Date,
		memoryType, patch.Location, people, filter,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update memory: %w", translate(err))
	}
	return memory, nil
}

// Delete deletes the memory with id owned by userID
func (r *MemoryRepository) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM memories WHERE id = $1 AND user_id = $2`
	result, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete memory: %w", ErrNotFound)
	}
	return nil
}

func scanMemory(row pgx.Row) (*models.Memory, error) {
	var (
		memory     models.Memory
		memoryType string
		filter     string
	)
	err := row.Scan(
		&memory.ID, &memory.UserID, &memory.Title, &memory.Description, &memory.Content,
		&memory.Date, &memoryType, &memory.Location, &memory.People, &filter,
		&memory.CreatedAt, &memory.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	memory.Type = models.MemoryType(memoryType)
	memory.Filter = models.PhotoFilter(filter)
	if memory.People == nil {
		memory.People = []string{}
	}
	return &memory, nil
}
