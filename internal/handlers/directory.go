package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/internal/middleware"
	"github.com/matterdesk/matterdesk/internal/services"
	"github.com/matterdesk/matterdesk/pkg/response"
)

// DirectoryHandler serves firm administration: staff, firm settings and the audit log.
type DirectoryHandler struct {
	directoryService *services.DirectoryService
}

func NewDirectoryHandler(directory *services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directoryService: directory}
}

// ListStaff
// GET /api/staff
func (h *DirectoryHandler) ListStaff(c *gin.Context) {
	var req services.StaffListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.directoryService.ListStaff(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// ChangeStatus suspends, locks or reactivates a staff member
// PUT /api/staff/:id/status
func (h *DirectoryHandler) ChangeStatus(c *gin.Context) {
	id, ok := paramID(c, "id", "staff")
	if !ok {
		return
	}

	var req services.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.directoryService.ChangeStatus(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, profile)
}

// UpdateFirm
// PUT /api/firm
func (h *DirectoryHandler) UpdateFirm(c *gin.Context) {
	var req services.UpdateFirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	firm, err := h.directoryService.UpdateFirm(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, firm)
}

// AuditLog
// GET /api/audit-records
func (h *DirectoryHandler) AuditLog(c *gin.Context) {
	var req services.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.directoryService.AuditLog(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}
