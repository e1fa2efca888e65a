package polls

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pollsapp/backend/internal/authz"
	"github.com/pollsapp/backend/internal/middleware"
	"github.com/pollsapp/backend/internal/models"
	"github.com/pollsapp/backend/pkg/response"
)

// Handler handles poll HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a polls handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the poll routes.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/polls", h.List)
	r.POST("/polls", h.Create)
	r.GET("/polls/:id", h.Get)
	r.PUT("/polls/:id", h.Update)
	r.DELETE("/polls/:id", h.Delete)
	r.POST("/polls/:id/archive", h.Archive)
	r.POST("/polls/:id/restore", h.Restore)
	r.GET("/archived-polls", h.ListArchived)
	r.GET("/favorite-polls", h.ListFavorites)
}

// List handles GET /polls. ?owner=<uuid> narrows to one user's polls.
func (h *Handler) List(c *gin.Context) {
	var owner *uuid.UUID
	if raw := c.Query("owner"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid owner id")
			return
		}
		owner = &id
	}
	list, err := h.svc.List(c.Request.Context(), middleware.CurrentRequester(c), owner)
	if err != nil {
		h.fail(c, err, "failed to list polls")
		return
	}
	response.OK(c, gin.H{"polls": list})
}

// Get handles GET /polls/:id.
func (h *Handler) Get(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), middleware.CurrentRequester(c), pollID)
	if err != nil {
		h.fail(c, err, "failed to load poll")
		return
	}
	response.OK(c, p)
}

// Create handles POST /polls.
func (h *Handler) Create(c *gin.Context) {
	requester := middleware.CurrentRequester(c)
	if err := h.svc.Authorize(authz.OpCreatePoll, requester); err != nil {
		h.fail(c, err, "failed to create poll")
		return
	}
	var req models.PollInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), requester, req)
	if err != nil {
		h.fail(c, err, "failed to create poll")
		return
	}
	response.Created(c, p)
}

// Update handles PUT /polls/:id.
func (h *Handler) Update(c *gin.Context) {
	requester := middleware.CurrentRequester(c)
	if err := h.svc.Authorize(authz.OpUpdatePoll, requester); err != nil {
		h.fail(c, err, "failed to update poll")
		return
	}
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}
	var req models.PollInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), requester, pollID, req)
	if err != nil {
		h.fail(c, err, "failed to update poll")
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /polls/:id (owner).
func (h *Handler) Delete(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentRequester(c), pollID); err != nil {
		h.fail(c, err, "failed to delete poll")
		return
	}
	response.OK(c, gin.H{"id": pollID, "deleted": true})
}

// Archive handles POST /polls/:id/archive (owner).
func (h *Handler) Archive(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}
	p, err := h.svc.Archive(c.Request.Context(), middleware.CurrentRequester(c), pollID)
	if err != nil {
		h.fail(c, err, "failed to archive poll")
		return
	}
	response.OK(c, p)
}

// Restore handles POST /polls/:id/restore (administrators).
func (h *Handler) Restore(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}
	p, err := h.svc.Restore(c.Request.Context(), middleware.CurrentRequester(c), pollID)
	if err != nil {
		h.fail(c, err, "failed to restore poll")
		return
	}
	response.OK(c, p)
}

// ListArchived handles GET /archived-polls (administrators).
func (h *Handler) ListArchived(c *gin.Context) {
	list, err := h.svc.ListArchived(c.Request.Context(), middleware.CurrentRequester(c))
	if err != nil {
		h.fail(c, err, "failed to list archived polls")
		return
	}
	response.OK(c, gin.H{"polls": list})
}

// ListFavorites handles GET /favorite-polls.
func (h *Handler) ListFavorites(c *gin.Context) {
	list, err := h.svc.ListFavorites(c.Request.Context(), middleware.CurrentRequester(c))
	if err != nil {
		h.fail(c, err, "failed to list favorite polls")
		return
	}
	response.OK(c, gin.H{"polls": list})
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	if response.FromError(c, err) {
		return
	}
	h.logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	response.Internal(c, msg)
}

func parsePollID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return uuid.Nil, false
	}
	return id, true
}
