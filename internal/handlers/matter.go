package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/internal/middleware"
	"github.com/matterdesk/matterdesk/internal/services"
	"github.com/matterdesk/matterdesk/pkg/response"
)

type MatterHandler struct {
	matterService     *services.MatterService
	paymentService    *services.PaymentService
	assignmentService *services.AssignmentService
}

func NewMatterHandler(matters *services.MatterService, payments *services.PaymentService, assignments *services.AssignmentService) *MatterHandler {
	return &MatterHandler{
		matterService:     matters,
		paymentService:    payments,
		assignmentService: assignments,
	}
}

// List returns the matters visible to the caller
// GET /api/matters
func (h *MatterHandler) List(c *gin.Context) {
	var req services.MatterListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.matterService.List(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// File opens a matter on a client's behalf
// POST /api/matters
func (h *MatterHandler) File(c *gin.Context) {
	var req services.FileMatterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	matter, err := h.matterService.File(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, matter)
}

// FileWithPayment is the client's paid filing
// POST /api/matters/paid
func (h *MatterHandler) FileWithPayment(c *gin.Context) {
	var req services.PaidFilingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.paymentService.FileWithPayment(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Get returns a matter with its assignment, filtered documents and updates
// GET /api/matters/:id
func (h *MatterHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id", "matter")
	if !ok {
		return
	}

	detail, err := h.matterService.Get(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, detail)
}

// Transition moves a matter along the lifecycle graph
// POST /api/matters/:id/transitions
func (h *MatterHandler) Transition(c *gin.Context) {
	id, ok := paramID(c, "id", "matter")
	if !ok {
		return
	}

	var req services.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	matter, err := h.matterService.Transition(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, matter)
}

// Assign binds an associate lawyer to a matter under review
// POST /api/matters/:id/assignment
func (h *MatterHandler) Assign(c *gin.Context) {
	id, ok := paramID(c, "id", "matter")
	if !ok {
		return
	}

	var req services.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	assignment, err := h.assignmentService.Assign(c.Request.Context(), middleware.GetActor(c), id, req.StaffID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignment)
}

// EligibleStaff lists the associates a matter can be assigned to
// GET /api/staff/eligible
func (h *MatterHandler) EligibleStaff(c *gin.Context) {
	staff, err := h.assignmentService.EligibleStaff(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, staff)
}

// Lifecycle returns the full transition table for rendering
// GET /api/matters/lifecycle
func (h *MatterHandler) Lifecycle(c *gin.Context) {
	response.Success(c, services.Transitions())
}
