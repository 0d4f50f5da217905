package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"retail-rfm/pkg/apperr"
	"retail-rfm/pkg/logger"
)

// ErrorResponse est le corps JSON de toute erreur.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Kind      string      `json:"kind,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// HandleError écrit la réponse d'erreur et renvoie true si err != nil.
// Un *apperr.Error, même enveloppé, donne le statut de son Kind ; le reste
// est une erreur interne dont le message n'est pas exposé.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:     "upload too large",
			Details:   gin.H{"limit_bytes": maxErr.Limit},
			RequestID: GetRequestID(c),
		})
		return true
	}

	if domainErr, ok := apperr.As(err); ok {
		status := domainErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request failed", "error", err)
		}
		c.AbortWithStatusJSON(status, ErrorResponse{
			Error:     domainErr.Error(),
			Kind:      domainErr.Kind.String(),
			Details:   domainErr.Details,
			RequestID: GetRequestID(c),
		})
		return true
	}

	logger.Error(c.Request.Context(), "request failed", "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error:     "internal server error",
		RequestID: GetRequestID(c),
	})
	return true
}
