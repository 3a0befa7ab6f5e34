package handlers

import (
	"errors"
	"net/http"

	"forgeci/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrStepNotFound),
		errors.Is(err, domain.ErrSecretNotFound),
		errors.Is(err, domain.ErrCoverageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrWorkflowNameConflict),
		errors.Is(err, domain.ErrSecretConflict),
		errors.Is(err, domain.ErrRunAlreadyFinished),
		errors.Is(err, domain.ErrWorkflowHasActiveRuns):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidWorkflowName),
		errors.Is(err, domain.ErrMissingProjectID),
		errors.Is(err, domain.ErrInvalidDefinition),
		errors.Is(err, domain.ErrWorkflowInactive),
		errors.Is(err, domain.ErrInvalidEventKind),
		errors.Is(err, domain.ErrInvalidRunID),
		errors.Is(err, domain.ErrInvalidJobID),
		errors.Is(err, domain.ErrMissingBranch),
		errors.Is(err, domain.ErrInvalidSecretName),
		errors.Is(err, domain.ErrInvalidCoverage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrUploaderUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
