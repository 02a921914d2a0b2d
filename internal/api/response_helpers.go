// internal/api/response_helpers.go
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ResponseHelper 统一 {success, ...} 响应格式
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应，fields 与 success 字段平铺在顶层
func (rh *ResponseHelper) Success(c *gin.Context, statusCode int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(statusCode, body)
}

// Error 错误响应，error 字段为字符串
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string) {
	body := gin.H{
		"success": false,
		"error":   sanitizeErrorMessage(message),
		"code":    errorCode,
	}
	if requestID := rh.getRequestID(c); requestID != "" {
		body["requestId"] = requestID
	}
	c.JSON(statusCode, body)
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, message string) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, message)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, errorCode, message string) {
	rh.Error(c, http.StatusInternalServerError, errorCode, message)
}

// FromError 按错误分类输出响应
func (rh *ResponseHelper) FromError(c *gin.Context, err error) {
	status, code, message := classify(err)
	rh.Error(c, status, code, message)
}

// sanitizeErrorMessage 消息中带有密钥字样时整体替换
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range []string{"api_key", "xi-api-key", "secret", "token", "password"} {
		if strings.Contains(lower, pattern) {
			return "An internal error occurred"
		}
	}
	return message
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
