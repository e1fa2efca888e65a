package polls

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pollsapp/backend/internal/models"
	"github.com/pollsapp/backend/pkg/apperr"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const pollColumns = `p.id, p.title, p.description, p.archived, p.archived_at, p.premium, p.owner_id, p.created_at`

// Repository handles poll and question persistence.
type Repository struct {
	pool *pgxpool.Pool
	db   querier
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// InTx runs fn inside a transaction.
func (r *Repository) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{pool: r.pool, db: tx})
	})
}

// GetPoll returns a poll with its questions.
func (r *Repository) GetPoll(ctx context.Context, id uuid.UUID, state models.PollState) (*models.Poll, error) {
	return r.getPoll(ctx, id, state, "")
}

// GetPollForUpdate is GetPoll with a row lock; only meaningful inside InTx.
func (r *Repository) GetPollForUpdate(ctx context.Context, id uuid.UUID, state models.PollState) (*models.Poll, error) {
	return r.getPoll(ctx, id, state, " FOR UPDATE")
}

func (r *Repository) getPoll(ctx context.Context, id uuid.UUID, state models.PollState, lock string) (*models.Poll, error) {
	cond, err := stateCondition(state)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + pollColumns + ` FROM polls p WHERE p.id = $1 AND ` + cond + lock
	p, err := scanPoll(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("poll not found")
	}
	if err != nil {
		return nil, err
	}
	list := []models.Poll{*p}
	if err := r.loadQuestions(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListPolls returns polls matching filter, newest first, with their questions.
func (r *Repository) ListPolls(ctx context.Context, filter models.PollFilter) ([]models.Poll, error) {
	cond, err := stateCondition(filter.State)
	if err != nil {
		return nil, err
	}
	var (
		args  []interface{}
		joins string
	)
	conds := []string{cond}
	if filter.FavoritedBy != nil {
		args = append(args, *filter.FavoritedBy)
		joins = ` JOIN favorite_polls f ON f.poll_id = p.id AND f.user_id = $` + strconv.Itoa(len(args))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conds = append(conds, `p.owner_id = $`+strconv.Itoa(len(args)))
	}
	query := `SELECT ` + pollColumns + ` FROM polls p` + joins +
		` WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY p.created_at DESC, p.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadQuestions(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreatePoll inserts a poll and its questions in one transaction.
func (r *Repository) CreatePoll(ctx context.Context, p *models.Poll) error {
	return r.InTx(ctx, func(tx TxStore) error {
		txr := tx.(*Repository)
		const query = `INSERT INTO polls (id, title, description, premium, owner_id)
			VALUES (gen_random_uuid(), $1, $2, $3, $4)
			RETURNING id, archived, archived_at, created_at`
		err := txr.db.QueryRow(ctx, query, p.Title, p.Description, p.Premium, p.OwnerID).
			Scan(&p.ID, &p.Archived, &p.ArchivedAt, &p.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert poll: %w", err)
		}
		for i := range p.Questions {
			p.Questions[i].PollID = p.ID
			if err := txr.CreateQuestion(ctx, &p.Questions[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetArchived moves a poll between states, returning NotFound if it is absent
// or already in the target state.
func (r *Repository) SetArchived(ctx context.Context, id uuid.UUID, archived bool, at *time.Time) (*models.Poll, error) {
	const query = `UPDATE polls p SET archived = $2, archived_at = $3
		WHERE p.id = $1 AND p.archived = NOT $2
		RETURNING ` + pollColumns
	p, err := scanPoll(r.db.QueryRow(ctx, query, id, archived, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("poll not found")
	}
	if err != nil {
		return nil, err
	}
	list := []models.Poll{*p}
	if err := r.loadQuestions(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// DeletePoll removes a poll. Dependent rows are dropped by ON DELETE CASCADE.
func (r *Repository) DeletePoll(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete poll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("poll not found")
	}
	return nil
}

// UpdatePollFields writes the editable poll fields.
func (r *Repository) UpdatePollFields(ctx context.Context, p *models.Poll) error {
	const query = `UPDATE polls SET title = $2, description = $3, premium = $4 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, p.ID, p.Title, p.Description, p.Premium)
	if err != nil {
		return fmt.Errorf("update poll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("poll not found")
	}
	return nil
}

// ListQuestions returns a poll's questions in insertion order.
func (r *Repository) ListQuestions(ctx context.Context, pollID uuid.UUID) ([]models.Question, error) {
	list := []models.Poll{{ID: pollID}}
	if err := r.loadQuestions(ctx, list); err != nil {
		return nil, err
	}
	return list[0].Questions, nil
}

// CreateQuestion inserts a question, filling its id.
func (r *Repository) CreateQuestion(ctx context.Context, q *models.Question) error {
	const query = `INSERT INTO questions (id, poll_id, content, type, choices, required)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRow(ctx, query, q.PollID, q.Content, q.Type, q.Choices, q.Required).Scan(&q.ID); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// UpdateQuestion updates a question of q.PollID.
func (r *Repository) UpdateQuestion(ctx context.Context, q models.Question) error {
	const query = `UPDATE questions SET content = $3, type = $4, choices = $5, required = $6
		WHERE id = $1 AND poll_id = $2`
	tag, err := r.db.Exec(ctx, query, q.ID, q.PollID, q.Content, q.Type, q.Choices, q.Required)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("question not found")
	}
	return nil
}

// DeleteQuestion removes a question of pollID.
func (r *Repository) DeleteQuestion(ctx context.Context, pollID, questionID uuid.UUID) error {
	const query = `DELETE FROM questions WHERE id = $1 AND poll_id = $2`
	tag, err := r.db.Exec(ctx, query, questionID, pollID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("question not found")
	}
	return nil
}

// loadQuestions fills Questions for every poll in list with a single query.
func (r *Repository) loadQuestions(ctx context.Context, list []models.Poll) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[uuid.UUID]int, len(list))
	for i := range list {
		ids[i] = list[i].ID.String()
		index[list[i].ID] = i
		list[i].Questions = []models.Question{}
	}
	const query = `SELECT id, poll_id, content, type, choices, required
		FROM questions WHERE poll_id = ANY($1::uuid[]) ORDER BY seq`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.PollID, &q.Content, &q.Type, &q.Choices, &q.Required); err != nil {
			return err
		}
		i := index[q.PollID]
		list[i].Questions = append(list[i].Questions, q)
	}
	return rows.Err()
}

func scanPoll(row pgx.Row) (*models.Poll, error) {
	var p models.Poll
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Archived, &p.ArchivedAt, &p.Premium, &p.OwnerID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func stateCondition(state models.PollState) (string, error) {
	if !state.Valid() {
		return "", fmt.Errorf("poll state filter required, got %q", state)
	}
	switch state {
	case models.PollStateActive:
		return "p.archived = FALSE", nil
	case models.PollStateArchived:
		return "p.archived = TRUE", nil
	}
	return "TRUE", nil
}
