package favorites

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pollsapp/backend/internal/models"
	"github.com/pollsapp/backend/pkg/apperr"
)

// Repository handles favorite_polls persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a favorites repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FavoritePollIDs returns the ids of every poll userID has favorited.
func (r *Repository) FavoritePollIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	const query = `SELECT poll_id FROM favorite_polls WHERE user_id = $1`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PollIsActive reports whether pollID exists and is not archived.
func (r *Repository) PollIsActive(ctx context.Context, pollID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM polls WHERE id = $1 AND archived = FALSE)`
	var ok bool
	err := r.pool.QueryRow(ctx, query, pollID).Scan(&ok)
	return ok, err
}

// Create inserts a favorite; an existing (user, poll) pair is a Conflict.
func (r *Repository) Create(ctx context.Context, userID, pollID uuid.UUID) (*models.FavoritePoll, error) {
	const query = `INSERT INTO favorite_polls (id, poll_id, user_id)
		VALUES (gen_random_uuid(), $1, $2)
		ON CONFLICT (user_id, poll_id) DO NOTHING
		RETURNING id, created_at`
	fav := &models.FavoritePoll{PollID: pollID, UserID: userID}
	rows, err := r.pool.Query(ctx, query, pollID, userID)
	if err != nil {
		return nil, fmt.Errorf("insert favorite: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("insert favorite: %w", err)
		}
		return nil, apperr.Conflict("poll is already a favorite")
	}
	if err := rows.Scan(&fav.ID, &fav.CreatedAt); err != nil {
		return nil, err
	}
	return fav, nil
}

// Delete removes a favorite; a missing row is NotFound.
func (r *Repository) Delete(ctx context.Context, userID, pollID uuid.UUID) error {
	const query = `DELETE FROM favorite_polls WHERE user_id = $1 AND poll_id = $2`
	tag, err := r.pool.Exec(ctx, query, userID, pollID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("favorite not found")
	}
	return nil
}
