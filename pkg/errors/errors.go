package errors

import (
	"errors"
	"fmt"
)

// FieldError 字段级业务校验错误
// Err 为业务哨兵错误（可通过 errors.Is 匹配），Message 携带可直接展示给用户的细节
type FieldError struct {
	Field   string
	Message string
	Err     error
}

// NewFieldError 创建字段级校验错误
func NewFieldError(field string, err error, format string, args ...interface{}) *FieldError {
	return &FieldError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return e.Err }

// FatalError 数据完整性或表结构问题，不属于用户可修正的校验失败
type FatalError struct {
	Detail string
	Err    error
}

// Fatal 包装为致命错误
func Fatal(err error, format string, args ...interface{}) *FatalError {
	return &FatalError{Detail: fmt.Sprintf(format, args...), Err: err}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal 判断错误链中是否包含致命错误
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// AsFieldError 从错误链中提取字段级错误
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
