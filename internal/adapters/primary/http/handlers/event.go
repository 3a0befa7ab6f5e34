package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"forgeci/internal/adapters/primary/http/dto"
	"forgeci/internal/core/domain"
)

// HandleEvent accepts a trigger event and starts a run for every matching
// workflow in the project. The response lists the runs that were created; an
// event matching nothing is still a 200 with an empty list.
func (h *Handler) HandleEvent(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev := domain.Event{
		Kind:      domain.EventKind(req.Kind),
		Branch:    req.Branch,
		CommitSHA: req.CommitSHA,
		PRNumber:  req.PRNumber,
		Actor:     req.Actor,
	}

	runs, err := h.runSvc.HandleEvent(c.Request.Context(), projectID, ev)
	if err != nil {
		log.WithError(err).Error("handle event failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.RunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.ToRunResponse(run))
	}

	c.JSON(http.StatusOK, gin.H{"runs": items})
}

func (h *Handler) DispatchWorkflow(c *gin.Context) {
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

	var req dto.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.runSvc.Dispatch(c.Request.Context(), projectID, id, req.Branch, req.CommitSHA, req.Actor)
	if err != nil {
		log.WithError(err).Error("dispatch workflow failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToRunResponse(run))
}
