package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tripbuddy/internal/domain"
)

type Ack struct {
	Message string `json:"message"`
}

// ValidationBody 校验失败的统一响应体
type ValidationBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func OK(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, Ack{Message: msg})
}

func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Ack{Message: msg})
}

// FromError 领域错误 -> HTTP 状态码的唯一出口；未知错误记日志并回 500
func FromError(c *gin.Context, l *zap.Logger, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ValidationBody{Message: "validation failed", Errors: ve.Fields})
	case errors.Is(err, domain.ErrBadRequest):
		Fail(c, http.StatusBadRequest, "invalid request payload")
	case errors.Is(err, domain.ErrUserNotFound):
		Fail(c, http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrForbidden):
		Fail(c, http.StatusForbidden, "you do not have permission to perform this action")
	case errors.Is(err, domain.ErrInvalidCredentials):
		Fail(c, http.StatusBadRequest, "incorrect password")
	default:
		l.Error("unhandled error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		Fail(c, http.StatusInternalServerError, "internal server error")
	}
}
