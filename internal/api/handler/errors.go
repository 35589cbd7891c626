package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"elearning/backend/internal/service"
	pkgerrors "elearning/backend/pkg/errors"
	"elearning/backend/pkg/response"
)

// unprocessable 业务校验失败：message 为哨兵错误文案，details 为 FieldError 携带的细节
func unprocessable(c *gin.Context, code int, err error) {
	message := err.Error()
	details := ""
	if fe, ok := pkgerrors.AsFieldError(err); ok {
		details = fe.Message
		if fe.Err != nil {
			message = fe.Err.Error()
		}
	}
	response.Unprocessable(c, code, message, details)
}

// handleCommonError 各模块 switch 未覆盖时的兜底映射
func handleCommonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权执行该操作")
	case pkgerrors.IsFatal(err):
		c.Error(err)
		response.InternalError(c)
	case isFieldError(err):
		unprocessable(c, 10006, err)
	default:
		c.Error(err)
		response.InternalError(c)
	}
}

func isFieldError(err error) bool {
	_, ok := pkgerrors.AsFieldError(err)
	return ok
}
