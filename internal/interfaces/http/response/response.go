package response

import (
	"github.com/gin-gonic/gin"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/pkg/logger"
	"go.uber.org/zap"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error renders err through its AppError mapping. Data-unavailable errors are
// reported as retryable so clients can show a loading state.
func Error(c *gin.Context, err error) {
	appErr := domainerrors.FromError(err)
	if appErr.Status >= 500 && !appErr.Retryable {
		logger.Error(c.Request.Context(), "request failed", zap.String("code", appErr.Code), zap.Error(err))
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Reason != "" {
		body["reason"] = appErr.Reason
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	if appErr.Retryable {
		body["retryable"] = true
	}
	c.JSON(appErr.Status, body)
}

// ErrorWithError sends an error response with a specific status and message
func ErrorWithError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
