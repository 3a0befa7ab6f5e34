package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"forgeci/internal/adapters/primary/http/dto"
	"forgeci/internal/core/domain"
	output "forgeci/internal/core/ports/output"
)

func (h *Handler) ListWorkflows(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := output.WorkflowListFilter{
		ProjectID: projectID,
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		Order:     c.Query("order"),
		Limit:     limit,
		Offset:    offset,
	}
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}

	workflows, total, err := h.workflowSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list workflows failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.WorkflowResponse, 0, len(workflows))
	for _, workflow := range workflows {
		items = append(items, dto.ToWorkflowResponse(workflow))
	}

	c.JSON(http.StatusOK, dto.ListWorkflowsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	workflow, err := h.workflowSvc.Get(c.Request.Context(), projectID, id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowDetailResponse(workflow))
}

func (h *Handler) FindWorkflow(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter is required"})
		return
	}

	workflow, err := h.workflowSvc.GetByName(c.Request.Context(), projectID, name)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowDetailResponse(workflow))
}

func (h *Handler) CreateWorkflow(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	var req dto.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workflow, err := h.workflowSvc.Create(c.Request.Context(), projectID, req.Source, req.Description)
	if err != nil {
		log.WithError(err).Error("create workflow failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkflowDetailResponse(workflow))
}

func (h *Handler) UpdateWorkflow(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req dto.UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if req.Source != nil {
		updates["source"] = *req.Source
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	workflow, err := h.workflowSvc.Update(c.Request.Context(), projectID, id, updates)
	if err != nil {
		log.WithError(err).Error("update workflow failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowDetailResponse(workflow))
}

func (h *Handler) DeleteWorkflow(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.workflowSvc.Delete(c.Request.Context(), projectID, id); err != nil {
		log.WithError(err).Error("delete workflow failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func getProjectID(c *gin.Context) (uuid.UUID, error) {
	header := c.GetHeader("Project-ID")
	if header == "" {
		return uuid.Nil, domain.ErrMissingProjectID
	}
	return uuid.Parse(header)
}
