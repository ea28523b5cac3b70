package api

import (
	"net/http"

	"wildenergy/internal/apperr"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string      `json:"error" example:"something went wrong"`
	Code    string      `json:"code,omitempty" example:"course_full"`
	Details interface{} `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Error renders an apperr with its mapped status, or a generic 500 for
// anything untyped. Untyped errors are never leaked to the client.
func Error(c *gin.Context, err error) {
	if ae := apperr.As(err); ae != nil {
		c.JSON(apperr.HTTPStatus(err), ErrorResponse{
			Error:   ae.Message,
			Code:    ae.Code,
			Details: ae.Details,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
