package polls

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pollsapp/backend/internal/authz"
	"github.com/pollsapp/backend/internal/models"
	"github.com/pollsapp/backend/pkg/apperr"
)

// Service implements the poll operations: listing, editing, archiving.
type Service struct {
	store     Store
	favorites Annotator
	policy    *authz.Policy
	events    Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a poll service. events may be nil.
func NewService(store Store, favorites Annotator, policy *authz.Policy, events Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		favorites: favorites,
		policy:    policy,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// Authorize runs the checks for op that need no stored poll. Handlers call it
// before decoding a request body.
func (s *Service) Authorize(op authz.Operation, req authz.Requester) error {
	return s.policy.Authorize(op, req, nil)
}

// List returns active polls annotated for the requester, optionally only those owned by owner.
func (s *Service) List(ctx context.Context, req authz.Requester, owner *uuid.UUID) ([]models.PollView, error) {
	if err := s.policy.Authorize(authz.OpListPolls, req, nil); err != nil {
		return nil, err
	}
	list, err := s.store.ListPolls(ctx, models.PollFilter{State: models.PollStateActive, OwnerID: owner})
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return s.favorites.Annotate(ctx, list, req.Viewer())
}

// Get returns an active poll, or an archived one to its owner.
func (s *Service) Get(ctx context.Context, req authz.Requester, id uuid.UUID) (*models.PollView, error) {
	if err := s.policy.Authorize(authz.OpGetPoll, req, nil); err != nil {
		return nil, err
	}
	p, err := s.store.GetPoll(ctx, id, models.PollStateAny)
	if err != nil {
		return nil, err
	}
	if !models.PollStateActive.Matches(p.Archived) && (!req.Authenticated || p.OwnerID != req.UserID) {
		return nil, apperr.NotFound("poll not found")
	}
	views, err := s.favorites.Annotate(ctx, []models.Poll{*p}, req.Viewer())
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Create stores a new poll owned by the requester.
func (s *Service) Create(ctx context.Context, req authz.Requester, in models.PollInput) (*models.Poll, error) {
	if err := s.policy.Authorize(authz.OpCreatePoll, req, nil); err != nil {
		return nil, err
	}
	if err := validatePollInput(&in); err != nil {
		return nil, err
	}
	p := &models.Poll{
		Title:       in.Title,
		Description: in.Description,
		Premium:     in.Premium,
		OwnerID:     req.UserID,
		Questions:   make([]models.Question, 0, len(in.Questions)),
	}
	for _, qin := range in.Questions {
		var q models.Question
		q.Apply(qin)
		p.Questions = append(p.Questions, q)
	}
	if err := s.store.CreatePoll(ctx, p); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	s.logger.Info("poll created", zap.String("poll_id", p.ID.String()), zap.String("owner_id", p.OwnerID.String()))
	s.publish(ctx, EventPollCreated, p.ID, p)
	return p, nil
}

// Update applies an edit payload to a poll owned by the requester, reconciling
// its questions. The whole edit commits or nothing does.
func (s *Service) Update(ctx context.Context, req authz.Requester, id uuid.UUID, in models.PollInput) (*models.Poll, error) {
	if err := s.policy.Authorize(authz.OpUpdatePoll, req, nil); err != nil {
		return nil, err
	}
	if err := validatePollInput(&in); err != nil {
		return nil, err
	}

	var (
		result *models.Poll
		plan   Plan
	)
	err := s.store.InTx(ctx, func(tx TxStore) error {
		p, err := s.authorizedPoll(ctx, tx.GetPollForUpdate, authz.OpUpdatePoll, req, id, models.PollStateActive)
		if err != nil {
			return err
		}
		plan = Reconcile(p.ID, p.Questions, in.Questions)

		p.Title = in.Title
		p.Description = in.Description
		p.Premium = in.Premium
		if err := tx.UpdatePollFields(ctx, p); err != nil {
			return err
		}
		for _, q := range plan.Update {
			if err := tx.UpdateQuestion(ctx, q); err != nil {
				return err
			}
		}
		for i := range plan.Create {
			if err := tx.CreateQuestion(ctx, &plan.Create[i]); err != nil {
				return err
			}
		}
		for _, qid := range plan.Delete {
			if err := tx.DeleteQuestion(ctx, p.ID, qid); err != nil {
				return err
			}
		}
		if p.Questions, err = tx.ListQuestions(ctx, p.ID); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("poll updated",
		zap.String("poll_id", result.ID.String()),
		zap.Int("questions_updated", len(plan.Update)),
		zap.Int("questions_created", len(plan.Create)),
		zap.Int("questions_deleted", len(plan.Delete)),
	)
	s.publish(ctx, EventPollUpdated, result.ID, result)
	return result, nil
}

// Archive moves an active poll owned by the requester to Archived.
func (s *Service) Archive(ctx context.Context, req authz.Requester, id uuid.UUID) (*models.Poll, error) {
	return s.transition(ctx, authz.OpArchivePoll, req, id)
}

// Restore moves an archived poll back to Active. Requires the administration permission.
func (s *Service) Restore(ctx context.Context, req authz.Requester, id uuid.UUID) (*models.Poll, error) {
	return s.transition(ctx, authz.OpRestorePoll, req, id)
}

func (s *Service) transition(ctx context.Context, op authz.Operation, req authz.Requester, id uuid.UUID) (*models.Poll, error) {
	t := transitions[op]
	if err := s.policy.Authorize(op, req, nil); err != nil {
		return nil, err
	}
	p, err := s.authorizedPoll(ctx, s.store.GetPoll, op, req, id, t.from)
	if err != nil {
		return nil, err
	}

	archived := t.to == models.PollStateArchived
	var at *time.Time
	if archived {
		now := s.now()
		at = &now
	}
	updated, err := s.store.SetArchived(ctx, id, archived, at)
	if err != nil {
		return nil, err
	}
	s.logger.Info("poll state changed",
		zap.String("poll_id", id.String()),
		zap.String("from", string(p.State())),
		zap.String("to", string(t.to)),
		zap.String("by", req.UserID.String()),
	)
	s.publish(ctx, t.event, id, updated)
	return updated, nil
}

// Delete removes an active poll owned by the requester. Questions, answers and
// favorites go with it.
func (s *Service) Delete(ctx context.Context, req authz.Requester, id uuid.UUID) error {
	if err := s.policy.Authorize(authz.OpDeletePoll, req, nil); err != nil {
		return err
	}
	p, err := s.authorizedPoll(ctx, s.store.GetPoll, authz.OpDeletePoll, req, id, models.PollStateActive)
	if err != nil {
		return err
	}
	if err := s.store.DeletePoll(ctx, p.ID); err != nil {
		return err
	}
	s.logger.Info("poll deleted", zap.String("poll_id", p.ID.String()), zap.String("owner_id", p.OwnerID.String()))
	s.publish(ctx, EventPollDeleted, p.ID, nil)
	return nil
}

type pollGetter func(ctx context.Context, id uuid.UUID, state models.PollState) (*models.Poll, error)

// authorizedPoll loads id in any state, checks the requester against it and
// only then requires it to be in want. A missing poll is reported through
// Policy.Unresolved so owner-gated operations never confirm absence.
func (s *Service) authorizedPoll(ctx context.Context, get pollGetter, op authz.Operation, req authz.Requester, id uuid.UUID, want models.PollState) (*models.Poll, error) {
	p, err := get(ctx, id, models.PollStateAny)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, s.policy.Unresolved(op, req, err)
	}
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(op, req, &authz.Resource{OwnerID: p.OwnerID}); err != nil {
		return nil, err
	}
	if !want.Matches(p.Archived) {
		return nil, apperr.NotFound("poll not found")
	}
	return p, nil
}

// ListArchived returns archived polls for administrators.
func (s *Service) ListArchived(ctx context.Context, req authz.Requester) ([]models.Poll, error) {
	if err := s.policy.Authorize(authz.OpListArchived, req, nil); err != nil {
		return nil, err
	}
	list, err := s.store.ListPolls(ctx, models.PollFilter{State: models.PollStateArchived})
	if err != nil {
		return nil, fmt.Errorf("list archived polls: %w", err)
	}
	return list, nil
}

// ListFavorites returns the requester's favorite polls that are still active.
func (s *Service) ListFavorites(ctx context.Context, req authz.Requester) ([]models.PollView, error) {
	if err := s.policy.Authorize(authz.OpListFavorites, req, nil); err != nil {
		return nil, err
	}
	list, err := s.store.ListPolls(ctx, models.PollFilter{State: models.PollStateActive, FavoritedBy: req.Viewer()})
	if err != nil {
		return nil, fmt.Errorf("list favorite polls: %w", err)
	}
	views := make([]models.PollView, len(list))
	for i, p := range list {
		views[i] = models.PollView{Poll: p, IsFavorite: true}
	}
	return views, nil
}

func (s *Service) publish(ctx context.Context, event string, pollID uuid.UUID, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event, pollID, data); err != nil {
		s.logger.Warn("publish poll event", zap.String("event", event), zap.String("poll_id", pollID.String()), zap.Error(err))
	}
}

// validatePollInput checks what binding tags cannot and fills question defaults.
func validatePollInput(in *models.PollInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Validation("title is required")
	}
	if in.Questions == nil {
		return apperr.Validation("questions are required")
	}
	for i := range in.Questions {
		q := &in.Questions[i]
		q.Normalize()
		if strings.TrimSpace(q.Content) == "" {
			return apperr.Validation(fmt.Sprintf("questions[%d]: content is required", i))
		}
		if !q.Type.Valid() {
			return apperr.Validation(fmt.Sprintf("questions[%d]: unknown type %q", i, q.Type))
		}
		candidate := models.Question{Type: q.Type, Choices: q.Choices}
		if q.Type.IsChoice() && len(candidate.Options()) == 0 {
			return apperr.Validation(fmt.Sprintf("questions[%d]: choice questions need at least one option", i))
		}
	}
	return nil
}
