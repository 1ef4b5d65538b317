package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/internal/middleware"
	"github.com/matterdesk/matterdesk/internal/services"
	"github.com/matterdesk/matterdesk/pkg/response"
)

type InvitationHandler struct {
	invitationService *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitations}
}

// Create issues a staff invitation. The raw token is only returned here.
// POST /api/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	var req services.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.invitationService.Create(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, resp)
}

// ListPending
// GET /api/invitations
func (h *InvitationHandler) ListPending(c *gin.Context) {
	invitations, err := h.invitationService.ListPending(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, invitations)
}

// Lookup previews an invitation for the onboarding form
// GET /api/invitations/:token
func (h *InvitationHandler) Lookup(c *gin.Context) {
	preview, err := h.invitationService.Lookup(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, preview)
}

// Redeem activates the invited staff profile
// POST /api/invitations/:token/redeem
func (h *InvitationHandler) Redeem(c *gin.Context) {
	var req services.RedeemInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.invitationService.Redeem(c.Request.Context(), c.Param("token"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, profile)
}
