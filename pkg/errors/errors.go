package errors

import (
	"errors"
	"fmt"

	"quantflow/pkg/errors/ecode"
)

// 带错误码的error，API层通过DecodeErr还原code和message

type CodedError struct {
	Code    int
	Message string
	cause   error
}

func (e *CodedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error { return e.cause }

// New 根据错误码创建error
func New(code int) error {
	return &CodedError{Code: code, Message: ecode.Message(code)}
}

// Newf 根据错误码创建error，附带自定义描述
func Newf(code int, format string, args ...interface{}) error {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 把底层错误包装上错误码
func Wrap(code int, cause error) error {
	if cause == nil {
		return nil
	}
	return &CodedError{Code: code, Message: ecode.Message(code), cause: cause}
}

// Is 判断err是否携带指定错误码
func Is(err error, code int) bool {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// DecodeErr 解析error为错误码和消息，nil视为成功
func DecodeErr(err error) (int, string) {
	if err == nil {
		return ecode.Success, ecode.Message(ecode.Success)
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code, ce.Message
	}
	return ecode.InternalErr, err.Error()
}
