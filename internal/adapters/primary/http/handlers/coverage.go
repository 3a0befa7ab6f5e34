package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"forgeci/internal/adapters/primary/http/dto"
	"forgeci/internal/core/domain"
)

// RecordCoverage stores a coverage report for a job. The report is tagged
// with the job's rendered name so matrix combinations keep distinct flags.
func (h *Handler) RecordCoverage(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	var req dto.RecordCoverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.coverageSvc.Record(c.Request.Context(), projectID, req.JobID, req.Percent, req.Payload)
	if err != nil {
		log.WithError(err).Error("record coverage failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCoverageResponse(report))
}

func (h *Handler) ListRunCoverage(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	reports, err := h.coverageSvc.ListByRun(c.Request.Context(), projectID, runID)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.CoverageResponse, 0, len(reports))
	for _, report := range reports {
		items = append(items, dto.ToCoverageResponse(report))
	}

	c.JSON(http.StatusOK, dto.ListCoverageResponse{Items: items})
}
