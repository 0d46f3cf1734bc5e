// Package errors 提供统一的错误处理机制
//
// 设计原则：
// 1. 所有错误都可以通过 errors.Is() 和 errors.As() 进行类型检查
// 2. 错误码对应测速协议的错误分类，用于日志和结果上报
// 3. 支持错误链（error wrapping）
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ErrorCode 错误码类型
type ErrorCode string

// 错误码定义
const (
	// 报文长度、魔数或类型不符，直接丢弃
	CodeMalformedMessage ErrorCode = "MALFORMED_MESSAGE"

	// 有界等待超时
	CodeTimeout ErrorCode = "TIMEOUT"

	// TCP 对端在数据收满前关闭
	CodePeerClosedEarly ErrorCode = "PEER_CLOSED_EARLY"

	// 套接字级失败（bind/send/connect/read）
	CodeTransportError ErrorCode = "TRANSPORT_ERROR"

	// 参数或配置非法
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// 上下文取消
	CodeCancelled ErrorCode = "CANCELLED"

	// 参数源已耗尽，不再有测试
	CodeSourceExhausted ErrorCode = "SOURCE_EXHAUSTED"

	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error 统一错误类型
type Error struct {
	Code    ErrorCode // 错误码
	Message string    // 错误消息
	Cause   error     // 原始错误
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New 创建新错误
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf 创建格式化错误
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf 格式化包装错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// GetCode 从错误中提取错误码
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode 检查错误是否为指定错误码
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsTimeout 判断是否为网络超时（读写截止时间到达）
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if IsCode(err, CodeTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Is 重导出 errors.Is
var Is = errors.Is

// As 重导出 errors.As
var As = errors.As
