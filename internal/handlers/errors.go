package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"healthcare-admin-server/internal/scheduling"
	"healthcare-admin-server/internal/utils"
)

const internalErrorMessage = "Something went wrong. Please try again later."

// respondError maps a scheduling error to its HTTP status. Unknown errors are
// logged and answered with a generic 500.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	switch {
	case errors.Is(err, scheduling.ErrValidation),
		errors.Is(err, scheduling.ErrConflict),
		errors.Is(err, scheduling.ErrInvalidTransition):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, scheduling.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		utils.Forbidden(c, err.Error())
	default:
		internalError(c, log, err, "Request failed")
	}
}

// internalError logs err with the request context and sends a generic 500.
func internalError(c *gin.Context, log *logrus.Logger, err error, msg string) {
	log.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).WithError(err).Error(msg)
	utils.Error(c, http.StatusInternalServerError, internalErrorMessage)
}
