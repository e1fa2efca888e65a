package submissions

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pollsapp/backend/internal/authz"
	"github.com/pollsapp/backend/internal/middleware"
	"github.com/pollsapp/backend/internal/models"
	"github.com/pollsapp/backend/pkg/response"
)

// Handler handles submission endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a submissions handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the submission routes.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/polls/:id/submissions", h.Submit)
	r.GET("/polls/:id/submissions", h.List)
}

// Submit handles POST /polls/:id/submissions.
func (h *Handler) Submit(c *gin.Context) {
	requester := middleware.CurrentRequester(c)
	if err := h.svc.Authorize(authz.OpSubmitPoll, requester); err != nil {
		if !response.FromError(c, err) {
			response.Internal(c, "failed to submit poll")
		}
		return
	}
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	var req models.SubmissionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sub, err := h.svc.Submit(c.Request.Context(), requester, pollID, req)
	if err != nil {
		if response.FromError(c, err) {
			return
		}
		h.logger.Error("submit poll", zap.String("poll_id", pollID.String()), zap.Error(err))
		response.Internal(c, "failed to submit poll")
		return
	}
	response.Created(c, sub)
}

// List handles GET /polls/:id/submissions (poll owner).
func (h *Handler) List(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	list, err := h.svc.ListForPoll(c.Request.Context(), middleware.CurrentRequester(c), pollID)
	if err != nil {
		if response.FromError(c, err) {
			return
		}
		h.logger.Error("list submissions", zap.String("poll_id", pollID.String()), zap.Error(err))
		response.Internal(c, "failed to list submissions")
		return
	}
	response.OK(c, gin.H{"submissions": list})
}
