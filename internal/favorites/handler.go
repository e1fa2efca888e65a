package favorites

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pollsapp/backend/internal/middleware"
	"github.com/pollsapp/backend/pkg/apperr"
	"github.com/pollsapp/backend/pkg/response"
)

// Handler handles favorite endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a favorites handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the favorite routes.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/polls/:id/favorite", h.Favorite)
	r.DELETE("/polls/:id/favorite", h.Unfavorite)
}

// Favorite handles POST /polls/:id/favorite. Favoriting twice is a no-op.
func (h *Handler) Favorite(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	_, err = h.svc.Favorite(c.Request.Context(), middleware.CurrentRequester(c), pollID)
	if err != nil && !apperr.Is(err, apperr.KindConflict) {
		if response.FromError(c, err) {
			return
		}
		h.logger.Error("favorite poll", zap.String("poll_id", pollID.String()), zap.Error(err))
		response.Internal(c, "failed to favorite poll")
		return
	}
	response.OK(c, gin.H{"poll_id": pollID, "is_favorite": true})
}

// Unfavorite handles DELETE /polls/:id/favorite.
func (h *Handler) Unfavorite(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	if err := h.svc.Unfavorite(c.Request.Context(), middleware.CurrentRequester(c), pollID); err != nil {
		if response.FromError(c, err) {
			return
		}
		h.logger.Error("unfavorite poll", zap.String("poll_id", pollID.String()), zap.Error(err))
		response.Internal(c, "failed to unfavorite poll")
		return
	}
	response.OK(c, gin.H{"poll_id": pollID, "is_favorite": false})
}
