package api

import (
	"onlinejudge/internal/apperror"

	"github.com/gin-gonic/gin"
)

// writeError renders err as spec.md §7's wire error shape: a numeric code,
// the canonical ERR_* reason token, and a human-readable message, matching
// the original's {code, reason, message} shape. A non-*apperror.Error is
// treated as ERR_INTERNAL, matching the teacher's own "unexpected error
// defaults to 500" convention.
func writeError(c *gin.Context, err error) {
	appErr, ok := err.(*apperror.Error)
	if !ok {
		appErr = apperror.Internalf("%v", err)
	}
	c.JSON(appErr.HTTPStatus(), gin.H{
		"code":    int(appErr.Code),
		"reason":  appErr.Reason(),
		"message": appErr.Message,
	})
}
