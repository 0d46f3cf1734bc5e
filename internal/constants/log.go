package constants

// 日志级别常量
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// 日志字段名常量
const (
	LogFieldRunID        = "run_id"
	LogFieldConnectionID = "connection_id"
	LogFieldProtocol     = "protocol"
	LogFieldRemote       = "remote"
	LogFieldComponent    = "component"
	LogFieldState        = "state"
	LogFieldSize         = "size"
	LogFieldDuration     = "duration"
)

// 日志格式常量
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// 日志输出常量
const (
	LogOutputStdout = "stdout"
	LogOutputStderr = "stderr"
	LogOutputFile   = "file"
)

// 通用提示信息常量
const (
	MsgServerStarted          = "Server started, listening on IP address %s"
	MsgServerShutdown         = "Speed test server shutdown completed"
	MsgClientStarted          = "Client started, listening for offer requests..."
	MsgReceivedOffer          = "Received offer from %s"
	MsgAllTransfersComplete   = "All transfers complete, listening to offer requests..."
	MsgInvalidConfiguration   = "invalid configuration: %v"
	MsgConfigLoadedFrom       = "Configuration loaded from %s"
	MsgReceivedShutdownSignal = "Received shutdown signal"
)
