package response

import "github.com/gin-gonic/gin"

// AppError 接口层错误：业务码 + 面向用户的提示 + 原始错误
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Respond 按统一结构输出，data 可为空
func (e *AppError) Respond(c *gin.Context, data interface{}) {
	if data == nil {
		Error(c, e.Code, e.Message)
		return
	}
	ErrorWithData(c, e.Code, e.Message, data)
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
