// internal/api/error_codes.go
package api

import (
	"errors"
	"net/http"

	apperrors "github.com/Corphon/LessonReel/internal/errors"
)

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// 生成相关错误
	ErrorValidation        = "VALIDATION_ERROR"
	ErrorGenerationFailed  = "GENERATION_FAILED"
	ErrorGenerationTimeout = "GENERATION_TIMEOUT"
	ErrorJobNotFound       = "JOB_NOT_FOUND"

	// 供应商相关错误
	ErrorVoicesUnavailable = "VOICES_UNAVAILABLE"
)

// 对外错误消息，内部细节只写日志
const (
	MsgGenerationFailed  = "Failed to generate video"
	MsgGenerationTimeout = "Lesson generation timed out"
	MsgVoicesFailed      = "Failed to fetch voices"
	MsgJobNotFound       = "Job not found"
	MsgInvalidBody       = "Invalid request body"
)

// classify 将服务层错误映射为状态码、错误代码与对外消息
func classify(err error) (int, string, string) {
	switch {
	case apperrors.IsValidationError(err):
		return http.StatusBadRequest, ErrorValidation, validationMessage(err)
	case apperrors.IsNotFoundError(err):
		return http.StatusNotFound, ErrorJobNotFound, MsgJobNotFound
	case apperrors.IsTimeoutError(err):
		return http.StatusGatewayTimeout, ErrorGenerationTimeout, MsgGenerationTimeout
	default:
		return apperrors.StatusOf(err), ErrorGenerationFailed, MsgGenerationFailed
	}
}

// validationMessage 校验错误的消息面向调用方，原样返回
func validationMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
