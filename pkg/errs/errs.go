package errs

import (
	"errors"
	"fmt"

	"github.com/Nevern1y/Whity-sub000/consts"
)

// AppError 业务错误，携带 consts 中定义的业务码。
// Cause 保留底层错误用于日志，不对外暴露。
type AppError struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// New 按业务码构造错误，消息取 consts 中的默认文案。
func New(code int32) error {
	return &AppError{Code: code, Message: consts.GetMessage(code)}
}

// Wrap 按业务码包装底层错误。
func Wrap(code int32, cause error) error {
	return &AppError{Code: code, Message: consts.GetMessage(code), Cause: cause}
}

// CodeOf 提取错误中的业务码；非 AppError 一律归为内部错误。
func CodeOf(err error) int32 {
	if err == nil {
		return consts.CodeSuccess
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return consts.CodeInternalError
}

// Is 判断错误是否携带指定业务码。
func Is(err error, code int32) bool {
	return CodeOf(err) == code
}
