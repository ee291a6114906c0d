package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"planengine/internal/apperr"
)

// writeError maps a typed apperr.Error (or any other error) to a status
// code and a stable error code, mirroring the teacher's
// c.JSON(status, gin.H{"error": ...}) pattern but keyed off the typed
// error instead of a raw string.
func writeError(c *gin.Context, err error) {
	ae, ok := err.(*apperr.Error)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "INTERNAL_ERROR", "message": err.Error()},
		})
		return
	}

	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindStorageUnavailable:
		status = http.StatusServiceUnavailable
	case apperr.KindProviderError:
		if ae.ProviderSubkind == apperr.ProviderTransient {
			status = http.StatusBadGateway
		} else {
			status = http.StatusUnprocessableEntity
		}
	case apperr.KindForbiddenRollback:
		status = http.StatusForbidden
	}

	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    ae.Code,
			"message": ae.Message,
			"details": ae.Details,
		},
	})
}
