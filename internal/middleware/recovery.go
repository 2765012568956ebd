package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ar-classroom/backend/pkg/response"
)

// Recovery turns a panic in a handler into a 500 {"detail": ...} response.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path), zap.Stack("stack"))
		response.AbortInternal(c, fmt.Sprintf("internal error: %v", recovered))
	})
}
