// Package httpapi exposes the learning engine over JSON/HTTP with gin.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eslsoft/wordladder/internal/adapter/mapping"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// respondError writes the envelope for a usecase error and records it on
// the context for the request logger.
func respondError(c *gin.Context, err error) {
	status, code := mapping.ToHTTPError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: err.Error(), Code: code}})
}

func respondBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorEnvelope{
		Error: APIError{Message: err.Error(), Code: mapping.CodeInvalidArgument},
	})
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
