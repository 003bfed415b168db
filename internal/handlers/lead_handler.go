package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kardan-dev/kardan-api/internal/middleware"
	"github.com/kardan-dev/kardan-api/internal/models"
	"github.com/kardan-dev/kardan-api/internal/services"
)

type LeadHandler struct {
	service services.LeadServiceInterface
}

func NewLeadHandler(service services.LeadServiceInterface) *LeadHandler {
	return &LeadHandler{service: service}
}

// Capture handles POST /api/v1/leads/capture
func (h *LeadHandler) Capture(c *gin.Context) {
	var sub models.LeadSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return
		}
		respondViolations(c, http.StatusBadRequest, "Invalid request body", ParseDecodeErrors(err), err)
		return
	}
	sub.RemoteIP = c.ClientIP()

	record, err := h.service.SubmitLead(c.Request.Context(), &sub)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	middleware.SetLeadReference(c, record.Reference())

	c.JSON(http.StatusCreated, models.LeadResponse{OK: true})
}
