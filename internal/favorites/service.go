package favorites

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pollsapp/backend/internal/authz"
	"github.com/pollsapp/backend/internal/models"
	"github.com/pollsapp/backend/pkg/apperr"
)

// Store is the FavoritePoll persistence used by Service.
type Store interface {
	Lookup
	// PollIsActive reports whether the poll exists and is not archived.
	PollIsActive(ctx context.Context, pollID uuid.UUID) (bool, error)
	// Create returns an apperr Conflict error if the pair already exists.
	Create(ctx context.Context, userID, pollID uuid.UUID) (*models.FavoritePoll, error)
	// Delete returns an apperr NotFound error if there is no such row.
	Delete(ctx context.Context, userID, pollID uuid.UUID) error
}

// Service implements favorite and unfavorite.
type Service struct {
	store  Store
	policy *authz.Policy
	logger *zap.Logger
}

// NewService creates a favorites service.
func NewService(store Store, policy *authz.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, policy: policy, logger: logger}
}

// Favorite marks an active poll as a favorite of the requester. A repeated
// call returns a Conflict error and leaves the single existing row in place.
func (s *Service) Favorite(ctx context.Context, req authz.Requester, pollID uuid.UUID) (*models.FavoritePoll, error) {
	if err := s.policy.Authorize(authz.OpFavoritePoll, req, nil); err != nil {
		return nil, err
	}
	active, err := s.store.PollIsActive(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperr.NotFound("poll not found")
	}
	fav, err := s.store.Create(ctx, req.UserID, pollID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("poll favorited", zap.String("poll_id", pollID.String()), zap.String("user_id", req.UserID.String()))
	return fav, nil
}

// Unfavorite removes the requester's favorite mark. Returns NotFound if there was none.
func (s *Service) Unfavorite(ctx context.Context, req authz.Requester, pollID uuid.UUID) error {
	if err := s.policy.Authorize(authz.OpUnfavoritePoll, req, nil); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, req.UserID, pollID); err != nil {
		return err
	}
	s.logger.Info("poll unfavorited", zap.String("poll_id", pollID.String()), zap.String("user_id", req.UserID.String()))
	return nil
}
