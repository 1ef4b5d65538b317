package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/internal/middleware"
	"github.com/matterdesk/matterdesk/internal/services"
	"github.com/matterdesk/matterdesk/pkg/response"
)

type DocumentHandler struct {
	documentService *services.DocumentService
}

func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documents}
}

// ListDocuments
// GET /api/matters/:id/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	id, ok := paramID(c, "id", "matter")
	if !ok {
		return
	}

	docs, err := h.documentService.ListDocuments(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, docs)
}

// AddDocument records document metadata on a matter
// POST /api/matters/:id/documents
func (h *DocumentHandler) AddDocument(c *gin.Context) {
	id, ok := paramID(c, "id", "matter")
	if !ok {
		return
	}

	var req services.AddDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.AddDocument(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}

// SetVisibility shares a document with the client or withdraws it
// PUT /api/documents/:id/visibility
func (h *DocumentHandler) SetVisibility(c *gin.Context) {
	id, ok := paramID(c, "id", "document")
	if !ok {
		return
	}

	var req services.SetVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.SetDocumentVisibility(c.Request.Context(), middleware.GetActor(c), id, *req.ClientVisible)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, doc)
}

// ListUpdates
// GET /api/matters/:id/updates
func (h *DocumentHandler) ListUpdates(c *gin.Context) {
	id, ok := paramID(c, "id", "matter")
	if !ok {
		return
	}

	updates, err := h.documentService.ListUpdates(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, updates)
}

// PostUpdate
// POST /api/matters/:id/updates
func (h *DocumentHandler) PostUpdate(c *gin.Context) {
	id, ok := paramID(c, "id", "matter")
	if !ok {
		return
	}

	var req services.PostUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	update, err := h.documentService.PostUpdate(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, update)
}
