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

func (h *Handler) ListRuns(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := output.RunListFilter{
		ProjectID: projectID,
		Status:    c.Query("status"),
		EventKind: c.Query("event"),
		Branch:    c.Query("branch"),
		Limit:     limit,
		Offset:    offset,
	}
	if workflowID := c.Query("workflow_id"); workflowID != "" {
		id, err := uuid.Parse(workflowID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow_id"})
			return
		}
		filter.WorkflowID = id
	}

	runs, total, err := h.runSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list runs failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.RunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.ToRunResponse(run))
	}

	c.JSON(http.StatusOK, dto.ListRunsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetRun(c *gin.Context) {
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

	run, err := h.runSvc.Get(c.Request.Context(), projectID, id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRunResponse(run))
}

func (h *Handler) ListRunJobs(c *gin.Context) {
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

	jobs, err := h.runSvc.ListJobs(c.Request.Context(), projectID, id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, dto.ToJobResponse(job))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) CancelRun(c *gin.Context) {
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

	if err := h.runSvc.Cancel(c.Request.Context(), projectID, id); err != nil {
		log.WithError(err).Error("cancel run failed")
		mapDomainError(c, err)
		return
	}

	run, err := h.runSvc.Get(c.Request.Context(), projectID, id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRunResponse(run))
}
