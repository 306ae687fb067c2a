package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bugtracker/pkg/metrics"
	"bugtracker/pkg/rbac"
)

// denied writes a 403 when err is a permission denial and reports
// whether it handled the error.
func denied(c *gin.Context, err error) bool {
	var perr *rbac.PermissionDeniedError
	if !errors.As(err, &perr) {
		return false
	}
	metrics.IncrementPermissionDenied(perr.Action)
	c.JSON(http.StatusForbidden, gin.H{"error": perr.Reason})
	return true
}
