// Package submissions records respondents' answers to active polls.
package submissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pollsapp/backend/internal/authz"
	"github.com/pollsapp/backend/internal/models"
	"github.com/pollsapp/backend/pkg/apperr"
)

// EventSubmissionCreated is published after a submission commits.
const EventSubmissionCreated = "submission.created"

// PollReader loads a poll with its questions.
type PollReader interface {
	GetPoll(ctx context.Context, id uuid.UUID, state models.PollState) (*models.Poll, error)
}

// Store persists submissions.
type Store interface {
	// Create writes the submission and its answers atomically, filling ids.
	Create(ctx context.Context, s *models.SubmittedPoll) error
	ListByPoll(ctx context.Context, pollID uuid.UUID) ([]models.SubmittedPoll, error)
}

// Publisher emits submission events.
type Publisher interface {
	Publish(ctx context.Context, event string, pollID uuid.UUID, data interface{}) error
}

// Service validates and stores submissions.
type Service struct {
	polls  PollReader
	store  Store
	policy *authz.Policy
	events Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a submissions service. events may be nil.
func NewService(polls PollReader, store Store, policy *authz.Policy, events Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{polls: polls, store: store, policy: policy, events: events, logger: logger, now: time.Now}
}

// Authorize runs the checks for op that need no stored poll.
func (s *Service) Authorize(op authz.Operation, req authz.Requester) error {
	return s.policy.Authorize(op, req, nil)
}

// Submit records answers to an active poll. Anonymous respondents are allowed.
func (s *Service) Submit(ctx context.Context, req authz.Requester, pollID uuid.UUID, in models.SubmissionInput) (*models.SubmittedPoll, error) {
	if err := s.policy.Authorize(authz.OpSubmitPoll, req, nil); err != nil {
		return nil, err
	}
	p, err := s.polls.GetPoll(ctx, pollID, models.PollStateActive)
	if err != nil {
		return nil, err
	}
	answers, err := validateAnswers(p.Questions, in.Answers)
	if err != nil {
		return nil, err
	}
	sub := &models.SubmittedPoll{
		PollID:      p.ID,
		SubmitterID: req.Viewer(),
		AnsweredAt:  s.now().UTC(),
		Answers:     answers,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info("poll submitted", zap.String("poll_id", p.ID.String()), zap.String("submission_id", sub.ID.String()), zap.Int("answers", len(sub.Answers)))
	if s.events != nil {
		if err := s.events.Publish(ctx, EventSubmissionCreated, p.ID, eventPayload(sub)); err != nil {
			s.logger.Warn("publish submission event", zap.String("poll_id", p.ID.String()), zap.Error(err))
		}
	}
	return sub, nil
}

// ListForPoll returns every submission of a poll. Only the poll's owner may read them.
func (s *Service) ListForPoll(ctx context.Context, req authz.Requester, pollID uuid.UUID) ([]models.SubmittedPoll, error) {
	if err := s.policy.Authorize(authz.OpListSubmissions, req, nil); err != nil {
		return nil, err
	}
	p, err := s.polls.GetPoll(ctx, pollID, models.PollStateAny)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, s.policy.Unresolved(authz.OpListSubmissions, req, err)
	}
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(authz.OpListSubmissions, req, &authz.Resource{OwnerID: p.OwnerID}); err != nil {
		return nil, err
	}
	list, err := s.store.ListByPoll(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.SubmittedPoll{}
	}
	return list, nil
}

// eventPayload trims a submission down to what event consumers need.
func eventPayload(sub *models.SubmittedPoll) map[string]interface{} {
	return map[string]interface{}{"submission_id": sub.ID, "answers": len(sub.Answers)}
}

// validateAnswers checks every answer against the poll's questions and that
// every required question is answered.
func validateAnswers(questions []models.Question, in []models.AnswerInput) ([]models.Answer, error) {
	byID := make(map[uuid.UUID]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	seen := make(map[uuid.UUID]bool, len(in))
	answers := make([]models.Answer, 0, len(in))
	for _, a := range in {
		q, ok := byID[a.QuestionID]
		if !ok {
			return nil, apperr.Validation("answer references a question outside this poll")
		}
		if seen[a.QuestionID] {
			return nil, apperr.Validation("question answered more than once")
		}
		seen[a.QuestionID] = true
		if !q.AcceptsAnswer(a.Value) {
			return nil, apperr.Validation("invalid answer for question: " + q.Content)
		}
		answers = append(answers, models.Answer{QuestionID: q.ID, Value: a.Value})
	}
	for _, q := range questions {
		if q.Required && !seen[q.ID] {
			return nil, apperr.Validation("missing answer for required question: " + q.Content)
		}
	}
	return answers, nil
}
