package httptransport

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"petvision-server-go/internal/platform/errors"
)

// APIResponse 定义统一的接口返回结构体
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess 返回成功响应
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	resp := APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondError 返回失败响应
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	resp := APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// StatusFor 错误类型到 HTTP 状态码
func StatusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.KindPrecondition:
		return http.StatusConflict
	case errors.KindValidation:
		var typed *errors.Error
		if stderrors.As(err, &typed) && typed.Op == "image.FormatFor" {
			return http.StatusUnsupportedMediaType
		}
		return http.StatusBadRequest
	case errors.KindInference:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondErr 按错误类型选择状态码，message 为空时使用错误自身的描述
func RespondErr(c *gin.Context, err error, message string) {
	if message == "" {
		message = errors.Message(err)
	}
	_ = c.Error(err)
	RespondError(c, StatusFor(err), message, gin.H{"kind": string(errors.KindOf(err))})
}
