package submissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pollsapp/backend/internal/models"
)

// Repository handles submitted_polls and answers persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a submissions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the submission and its answers in one transaction.
func (r *Repository) Create(ctx context.Context, s *models.SubmittedPoll) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertSubmission = `INSERT INTO submitted_polls (id, poll_id, submitter_id, answered_at)
			VALUES (gen_random_uuid(), $1, $2, $3) RETURNING id`
		if err := tx.QueryRow(ctx, insertSubmission, s.PollID, s.SubmitterID, s.AnsweredAt).Scan(&s.ID); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		const insertAnswer = `INSERT INTO answers (id, submitted_poll_id, question_id, value)
			VALUES (gen_random_uuid(), $1, $2, $3) RETURNING id`
		for i := range s.Answers {
			a := &s.Answers[i]
			a.SubmittedPollID = s.ID
			if err := tx.QueryRow(ctx, insertAnswer, s.ID, a.QuestionID, a.Value).Scan(&a.ID); err != nil {
				return fmt.Errorf("insert answer: %w", err)
			}
		}
		return nil
	})
}

// ListByPoll returns a poll's submissions, newest first, with their answers.
func (r *Repository) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]models.SubmittedPoll, error) {
	const query = `SELECT id, poll_id, submitter_id, answered_at FROM submitted_polls
		WHERE poll_id = $1 ORDER BY answered_at DESC`
	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	var list []models.SubmittedPoll
	index := make(map[uuid.UUID]int)
	ids := make([]string, 0)
	for rows.Next() {
		var s models.SubmittedPoll
		if err := rows.Scan(&s.ID, &s.PollID, &s.SubmitterID, &s.AnsweredAt); err != nil {
			rows.Close()
			return nil, err
		}
		s.Answers = []models.Answer{}
		index[s.ID] = len(list)
		ids = append(ids, s.ID.String())
		list = append(list, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}

	const answersQuery = `SELECT a.id, a.submitted_poll_id, a.question_id, a.value
		FROM answers a JOIN questions q ON q.id = a.question_id
		WHERE a.submitted_poll_id = ANY($1::uuid[]) ORDER BY q.seq`
	arows, err := r.pool.Query(ctx, answersQuery, ids)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var a models.Answer
		if err := arows.Scan(&a.ID, &a.SubmittedPollID, &a.QuestionID, &a.Value); err != nil {
			return nil, err
		}
		i := index[a.SubmittedPollID]
		list[i].Answers = append(list[i].Answers, a)
	}
	return list, arows.Err()
}
