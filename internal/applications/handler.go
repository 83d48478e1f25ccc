package applications

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/volunteerhub/backend/internal/middleware"
	"github.com/volunteerhub/backend/internal/models"
	"github.com/volunteerhub/backend/internal/opportunities"
	"github.com/volunteerhub/backend/pkg/response"
)

// Store is the persistence surface the applications handler needs.
type Store interface {
	Create(ctx context.Context, a *models.Application) error
	Exists(ctx context.Context, opportunityID, volunteerID uuid.UUID) (bool, error)
	GetWithOwner(ctx context.Context, id uuid.UUID) (*models.Application, uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error
	DeleteByPair(ctx context.Context, opportunityID, volunteerID uuid.UUID) error
	ListByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]models.ApplicationWithOpportunity, error)
	ListByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]models.ApplicationWithVolunteer, error)
}

// OpportunityStore is the opportunity lookup the lifecycle checks need.
type OpportunityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error)
}

// ApplyRequest is the body for POST /api/applications.
type ApplyRequest struct {
	OpportunityID string `json:"opportunity_id" binding:"required,uuid"`
	Message       string `json:"message" binding:"required"`
}

// UpdateStatusRequest is the body for PUT /api/applications/:id.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles application lifecycle HTTP endpoints.
type Handler struct {
	store  Store
	opps   OpportunityStore
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an applications handler.
func NewHandler(store Store, opps OpportunityStore, logger *zap.Logger) *Handler {
	return &Handler{store: store, opps: opps, logger: logger, now: time.Now}
}

// Apply handles POST /api/applications (volunteer only).
func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	volunteerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	opportunityID, err := uuid.Parse(req.OpportunityID)
	if err != nil {
		response.BadRequest(c, "invalid opportunity id")
		return
	}
	ctx := c.Request.Context()

	opp, err := h.opps.GetByID(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, opportunities.ErrNotFound) {
			response.NotFound(c, "opportunity not found")
			return
		}
		response.Internal(c, "failed to load opportunity")
		return
	}
	if opp.Status != models.OpportunityOpen {
		response.BadRequest(c, "opportunity is closed")
		return
	}
	if h.now().After(opp.ApplyDeadline) {
		response.BadRequest(c, "application deadline has passed")
		return
	}

	exists, err := h.store.Exists(ctx, opportunityID, volunteerID)
	if err != nil {
		response.Internal(c, "failed to check application")
		return
	}
	if exists {
		response.BadRequest(c, "you already applied to this opportunity")
		return
	}

	a := &models.Application{
		OpportunityID: opportunityID,
		VolunteerID:   volunteerID,
		Message:       req.Message,
		Status:        models.ApplicationPending,
	}
	if err := h.store.Create(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicate) {
			response.BadRequest(c, "you already applied to this opportunity")
			return
		}
		h.logger.Error("create application", zap.Error(err))
		response.Internal(c, "failed to create application")
		return
	}
	response.Created(c, a)
}

// MyApplications handles GET /api/applications/my (volunteer only).
func (h *Handler) MyApplications(c *gin.Context) {
	volunteerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.store.ListByVolunteer(c.Request.Context(), volunteerID)
	if err != nil {
		h.logger.Error("list my applications", zap.Error(err))
		response.Internal(c, "failed to list applications")
		return
	}
	response.OK(c, list)
}

// GetApplicants handles GET /api/applications/opportunity/:opportunityId.
// Only the NGO owning the opportunity may read its applicant list.
func (h *Handler) GetApplicants(c *gin.Context) {
	opportunityID, err := uuid.Parse(c.Param("opportunityId"))
	if err != nil {
		response.BadRequest(c, "invalid opportunity id")
		return
	}
	callerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()

	opp, err := h.opps.GetByID(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, opportunities.ErrNotFound) {
			response.NotFound(c, "opportunity not found")
			return
		}
		response.Internal(c, "failed to load opportunity")
		return
	}
	if opp.NGOID != callerID {
		response.Forbidden(c, "not authorized")
		return
	}

	list, err := h.store.ListByOpportunity(ctx, opportunityID)
	if err != nil {
		h.logger.Error("list applicants", zap.Error(err))
		response.Internal(c, "failed to list applicants")
		return
	}
	response.OK(c, list)
}

// UpdateStatus handles PUT /api/applications/:id (owning NGO only).
// Only pending applications can move, and only to accepted or rejected.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid application id")
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status must be accepted or rejected")
		return
	}
	status := models.ApplicationStatus(req.Status)
	if status != models.ApplicationAccepted && status != models.ApplicationRejected {
		response.BadRequest(c, "status must be accepted or rejected")
		return
	}
	callerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()

	a, ngoID, err := h.store.GetWithOwner(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "application not found")
			return
		}
		response.Internal(c, "failed to load application")
		return
	}
	if ngoID != callerID {
		response.Forbidden(c, "not authorized")
		return
	}
	if a.Status != models.ApplicationPending {
		response.BadRequest(c, "application already "+string(a.Status))
		return
	}

	if err := h.store.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "application not found")
			return
		}
		h.logger.Error("update application status", zap.Error(err))
		response.Internal(c, "failed to update application")
		return
	}
	a.Status = status
	response.OK(c, a)
}

// Withdraw handles DELETE /api/applications/undo/:opportunityId (volunteer only).
func (h *Handler) Withdraw(c *gin.Context) {
	opportunityID, err := uuid.Parse(c.Param("opportunityId"))
	if err != nil {
		response.BadRequest(c, "invalid opportunity id")
		return
	}
	volunteerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if err := h.store.DeleteByPair(c.Request.Context(), opportunityID, volunteerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "application not found")
			return
		}
		h.logger.Error("withdraw application", zap.Error(err))
		response.Internal(c, "failed to withdraw application")
		return
	}
	response.OK(c, gin.H{"message": "application withdrawn successfully"})
}
