package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"forgeci/internal/adapters/primary/http/dto"
	"forgeci/internal/core/domain"
)

func (h *Handler) ListSecretNames(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	names, err := h.secretSvc.ListNames(c.Request.Context(), projectID)
	if err != nil {
		log.WithError(err).Error("list secret names failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListSecretNamesResponse{Names: names})
}

// SetSecret creates or replaces a secret. The value is accepted and stored
// but never returned.
func (h *Handler) SetSecret(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	var req dto.SetSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	secret, err := h.secretSvc.Set(c.Request.Context(), projectID, req.Name, req.Value)
	if err != nil {
		log.WithError(err).WithField("secret", req.Name).Error("set secret failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSecretResponse(secret))
}

func (h *Handler) DeleteSecret(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	name := c.Param("name")
	if err := h.secretSvc.Delete(c.Request.Context(), projectID, name); err != nil {
		log.WithError(err).WithField("secret", name).Error("delete secret failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
