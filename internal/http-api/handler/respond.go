package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"libhub/internal/http-api/repository"
	"libhub/internal/http-api/service"
)

// respondError maps service errors onto HTTP statuses. Anything unmapped is
// an internal error.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrBookNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRentalNotFound),
		errors.Is(err, repository.ErrBackupNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrVerificationFailed):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrBookUnavailable),
		errors.Is(err, service.ErrRentalNotActive),
		errors.Is(err, service.ErrRentalNotReturned),
		errors.Is(err, service.ErrInvalidRentalType),
		errors.Is(err, service.ErrInvalidCopies),
		errors.Is(err, service.ErrMalformedBackup):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
