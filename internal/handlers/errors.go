// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "pawcare-back/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError writes err as {"success": false, "error": ...}. Errors that
// are not an AppError are logged and reported with the fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	message := fallback

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrorTypeValidation:
			status = http.StatusBadRequest
		case apperrors.ErrorTypeConflict:
			status = http.StatusConflict
		case apperrors.ErrorTypeUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrorTypeExternal:
			status = http.StatusBadGateway
		}
		if status != http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		log.Error().Err(err).Str("path", c.FullPath()).Msg(fallback)
	}

	c.JSON(status, gin.H{"success": false, "error": message})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
