package handler

import (
	"errors"
	"net/http"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/logger"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// StatusCode 业务错误对应的 HTTP 状态码
func StatusCode(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// HandleError 按错误分类写响应，存储错误不向客户端暴露细节
func HandleError(c *gin.Context, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		ErrorResponse(c, status, "服务器内部错误")
		return
	}
	ErrorResponse(c, status, err.Error())
}
