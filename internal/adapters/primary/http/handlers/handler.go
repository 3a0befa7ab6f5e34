package handlers

import (
	"forgeci/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	workflowSvc *services.WorkflowService
	runSvc      *services.RunService
	jobSvc      *services.JobService
	secretSvc   *services.SecretService
	coverageSvc *services.CoverageService
}

func New(
	workflowSvc *services.WorkflowService,
	runSvc *services.RunService,
	jobSvc *services.JobService,
	secretSvc *services.SecretService,
	coverageSvc *services.CoverageService,
) *Handler {
	return &Handler{
		workflowSvc: workflowSvc,
		runSvc:      runSvc,
		jobSvc:      jobSvc,
		secretSvc:   secretSvc,
		coverageSvc: coverageSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Workflows
	r.GET("/workflows", h.ListWorkflows)
	r.GET("/workflows/:id", h.GetWorkflow)
	r.GET("/workflow", h.FindWorkflow)
	r.POST("/workflows", h.CreateWorkflow)
	r.PATCH("/workflows/:id", h.UpdateWorkflow)
	r.DELETE("/workflows/:id", h.DeleteWorkflow)

	// Trigger events and manual dispatch
	r.POST("/events", h.HandleEvent)
	r.POST("/workflows/:id/dispatch", h.DispatchWorkflow)

	// Runs
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
	r.GET("/runs/:id/jobs", h.ListRunJobs)
	r.POST("/runs/:id/cancel", h.CancelRun)

	// Jobs
	r.GET("/jobs/:id", h.GetJob)
	r.GET("/jobs/:id/steps", h.ListJobSteps)
	r.GET("/jobs/:id/log", h.GetJobLog)

	// Secrets
	r.GET("/secrets", h.ListSecretNames)
	r.PUT("/secrets", h.SetSecret)
	r.DELETE("/secrets/:name", h.DeleteSecret)

	// Coverage
	r.POST("/coverage", h.RecordCoverage)
	r.GET("/runs/:id/coverage", h.ListRunCoverage)
}
