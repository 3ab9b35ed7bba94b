package http

import (
	"errors"
	"net/http"

	"backoffice/internal/entities"
	"backoffice/internal/usecases"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto status codes. Body is {"error": msg}.
func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func statusFor(err error) (int, string) {
	var validation *entities.ValidationError
	var notFound *entities.NotFoundError
	var apiErr *entities.APIError
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Reason
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.Is(err, entities.ErrTimeout):
		return http.StatusGatewayTimeout, "upstream request timed out"
	case errors.Is(err, entities.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, usecases.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, usecases.ErrNoCompany):
		return http.StatusForbidden, "User is not linked to a company"
	case errors.Is(err, usecases.ErrSessionExpired):
		return http.StatusUnauthorized, "Session expired"
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.As(err, &apiErr):
		// Auth failures of the store are ours, not the caller's.
		if apiErr.Status >= 400 && apiErr.Status < 500 &&
			apiErr.Status != http.StatusUnauthorized && apiErr.Status != http.StatusForbidden {
			return apiErr.Status, apiErr.Message
		}
		return http.StatusBadGateway, apiErr.Message
	}
	return http.StatusInternalServerError, "internal server error"
}
