package errors

// 预定义哨兵错误（用于 errors.Is 比较）
var (
	ErrMalformedMessage = New(CodeMalformedMessage, "malformed message")
	ErrTimeout          = New(CodeTimeout, "operation timeout")
	ErrPeerClosedEarly  = New(CodePeerClosedEarly, "peer closed connection early")
	ErrTransport        = New(CodeTransportError, "transport error")
	ErrInvalidConfig    = New(CodeInvalidConfig, "invalid configuration")
	ErrCancelled        = New(CodeCancelled, "operation cancelled")
	ErrSourceExhausted  = New(CodeSourceExhausted, "parameter source exhausted")
	ErrInternal         = New(CodeInternal, "internal error")
)
