package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kardan-dev/kardan-api/internal/models"
	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, models.LeadResponse{OK: false, Error: message})
}

// respondViolations sends an error response carrying field-level violations.
func respondViolations(c *gin.Context, status int, message string, violations []apperrors.FieldViolation, err error) {
	attachError(c, err)
	c.JSON(status, models.LeadResponse{OK: false, Error: message, Errors: violations})
}

// respondServiceError maps a service failure to its HTTP response. Only the
// stable code and public message leave the process; err goes to the log.
func respondServiceError(c *gin.Context, err error) {
	var verr *apperrors.ValidationError
	if apperrors.As(err, &verr) {
		respondViolations(c, http.StatusUnprocessableEntity, apperrors.PublicMessage(apperrors.CodeValidation), verr.Violations, err)
		return
	}

	code := apperrors.CodeOf(err)
	attachError(c, err)
	c.JSON(http.StatusInternalServerError, models.LeadResponse{
		OK:    false,
		Error: apperrors.PublicMessage(code),
		Code:  code,
	})
}

// NoRoute answers unknown paths in the same JSON shape as every other error
func NoRoute(c *gin.Context) {
	respondError(c, http.StatusNotFound, "Not found", nil)
}

// NoMethod answers known paths called with an unsupported method
func NoMethod(c *gin.Context) {
	respondError(c, http.StatusMethodNotAllowed, "Method not allowed", nil)
}
