package polls

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pollsapp/backend/internal/models"
)

// Store is the poll persistence used by Service. Lookups return an
// apperr NotFound error when no poll matches.
type Store interface {
	GetPoll(ctx context.Context, id uuid.UUID, state models.PollState) (*models.Poll, error)
	ListPolls(ctx context.Context, filter models.PollFilter) ([]models.Poll, error)
	// CreatePoll inserts the poll and its questions atomically, filling ids and timestamps.
	CreatePoll(ctx context.Context, p *models.Poll) error
	// SetArchived flips the archive flag only if the poll is currently in the opposite state.
	SetArchived(ctx context.Context, id uuid.UUID, archived bool, at *time.Time) (*models.Poll, error)
	// DeletePoll removes the poll; questions, submissions and favorites cascade.
	DeletePoll(ctx context.Context, id uuid.UUID) error
	// InTx runs fn in one transaction, rolled back if fn returns an error.
	InTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the write surface available inside a poll update transaction.
type TxStore interface {
	GetPollForUpdate(ctx context.Context, id uuid.UUID, state models.PollState) (*models.Poll, error)
	ListQuestions(ctx context.Context, pollID uuid.UUID) ([]models.Question, error)
	// UpdatePollFields writes title, description and premium. Archive fields are untouched.
	UpdatePollFields(ctx context.Context, p *models.Poll) error
	CreateQuestion(ctx context.Context, q *models.Question) error
	// UpdateQuestion and DeleteQuestion are scoped to q.PollID / pollID; foreign ids are not found.
	UpdateQuestion(ctx context.Context, q models.Question) error
	DeleteQuestion(ctx context.Context, pollID, questionID uuid.UUID) error
}

// Annotator attaches the per-viewer favorite flag to polls.
type Annotator interface {
	Annotate(ctx context.Context, polls []models.Poll, viewer *uuid.UUID) ([]models.PollView, error)
}

// Publisher announces poll changes to other services.
type Publisher interface {
	Publish(ctx context.Context, event string, pollID uuid.UUID, data interface{}) error
}
