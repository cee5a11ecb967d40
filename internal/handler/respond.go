package handler

import (
	"ideahub/internal/apperror"
	"ideahub/internal/validation"
	"ideahub/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError writes err using the taxonomy status. Internal faults only ever
// show the generic message.
func respondError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	status := appErr.Kind.HTTPStatus()
	if appErr.Kind == apperror.KindInternal {
		_ = c.Error(err)
		c.JSON(status, response.Error(status, apperror.GenericMessage))
		return
	}
	c.JSON(status, response.ErrorWithDetails(status, appErr.Message, appErr.Details))
}

// bindJSON decodes the body into req, writing a 400 on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, validation.FromBindError(err))
		return false
	}
	return true
}
