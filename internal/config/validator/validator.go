// Package validator provides configuration validation
package validator

import (
	"fmt"
	"net"
	"strings"
	"time"

	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/constants"
	coreerrors "speedtest-core/internal/core/errors"
	"speedtest-core/internal/protocol/wire"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string // Field path (e.g., "responder.chunk_size")
	Value   string // Current value
	Message string // Error message
	Hint    string // Fix suggestion
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains all validation errors
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid returns true if there are no validation errors
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a formatted error message
func (r *ValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n\n")

	for i, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Field))
		if err.Value != "" {
			sb.WriteString(fmt.Sprintf("     Current value: %s\n", err.Value))
		}
		sb.WriteString(fmt.Sprintf("     Error: %s\n", err.Message))
		if err.Hint != "" {
			sb.WriteString(fmt.Sprintf("     Hint: %s\n", err.Hint))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Err returns nil when valid, otherwise an INVALID_CONFIG error carrying the report
func (r *ValidationResult) Err() error {
	if r.IsValid() {
		return nil
	}
	return coreerrors.New(coreerrors.CodeInvalidConfig, r.Error())
}

// AddError adds a validation error
func (r *ValidationResult) AddError(field, value, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Hint:    hint,
	})
}

// Validator validates configuration
type Validator struct {
	rules []ValidationRule
}

// ValidationRule is a function that validates configuration
type ValidationRule func(cfg *schema.Root, result *ValidationResult)

// NewValidator creates a new Validator with default rules
func NewValidator() *Validator {
	v := &Validator{
		rules: make([]ValidationRule, 0),
	}

	v.AddRule(validateResponder)
	v.AddRule(validateProber)
	v.AddRule(validateLog)
	v.AddRule(validateManagement)

	return v
}

// AddRule adds a validation rule
func (v *Validator) AddRule(rule ValidationRule) {
	v.rules = append(v.rules, rule)
}

// Validate validates the configuration
func (v *Validator) Validate(cfg *schema.Root) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]ValidationError, 0),
	}

	for _, rule := range v.rules {
		rule(cfg, result)
	}

	return result
}

// ValidateConfig is a convenience function that creates a validator and validates
func ValidateConfig(cfg *schema.Root) *ValidationResult {
	return NewValidator().Validate(cfg)
}

// ============================================================================
// Validation Rules
// ============================================================================

// MaxChunkSize is the largest segment payload that still fits one IPv4 UDP datagram
const MaxChunkSize = constants.MaxUDPPayload - wire.SegmentHeaderSize

func validateResponder(cfg *schema.Root, result *ValidationResult) {
	r := cfg.Responder

	validateHost("responder.host", r.Host, result)
	validateOptionalPort("responder.tcp_port", r.TCPPort, result)
	validateOptionalPort("responder.udp_port", r.UDPPort, result)
	validatePort("responder.discovery_port", r.DiscoveryPort, result)

	if r.BroadcastAddress == "" || net.ParseIP(r.BroadcastAddress) == nil {
		result.AddError("responder.broadcast_address",
			r.BroadcastAddress,
			"invalid broadcast address",
			"Use 255.255.255.255 or the subnet broadcast address, e.g., 192.168.1.255")
	}
	validatePositiveDuration("responder.broadcast_interval", r.BroadcastInterval, result)
	validatePositiveDuration("responder.request_timeout", r.RequestTimeout, result)

	if r.ChunkSize < 1 || r.ChunkSize > MaxChunkSize {
		result.AddError("responder.chunk_size",
			fmt.Sprintf("%d", r.ChunkSize),
			fmt.Sprintf("chunk_size must be between 1 and %d", MaxChunkSize),
			"Use 1400 to stay under a typical path MTU")
	}
	if r.SegmentRate < 0 {
		result.AddError("responder.segment_rate",
			fmt.Sprintf("%v", r.SegmentRate),
			"segment_rate must not be negative",
			"Use 0 to send segments back-to-back")
	}
	if r.BatchSize < 1 {
		result.AddError("responder.batch_size",
			fmt.Sprintf("%d", r.BatchSize),
			"batch_size must be at least 1",
			"Use 1 to disable batching")
	}
	if r.RecentTransfers < 1 {
		result.AddError("responder.recent_transfers",
			fmt.Sprintf("%d", r.RecentTransfers),
			"recent_transfers must be at least 1",
			"")
	}
}

func validateProber(cfg *schema.Root, result *ValidationResult) {
	p := cfg.Prober

	validatePort("prober.discovery_port", p.DiscoveryPort, result)
	validatePositiveDuration("prober.discovery_wait", p.DiscoveryWait, result)
	validatePositiveDuration("prober.recv_timeout", p.RecvTimeout, result)
	validatePositiveDuration("prober.idle_timeout", p.IdleTimeout, result)
	validatePositiveDuration("prober.dial_timeout", p.DialTimeout, result)

	if p.TCPReadChunk < 1 {
		result.AddError("prober.tcp_read_chunk",
			fmt.Sprintf("%d", p.TCPReadChunk),
			"tcp_read_chunk must be at least 1",
			"Use 8192")
	}
	if p.Cycles < 0 {
		result.AddError("prober.cycles",
			fmt.Sprintf("%d", p.Cycles),
			"cycles must not be negative",
			"Use 0 for unlimited cycles")
	}
	if p.TCPConnections < 0 {
		result.AddError("prober.tcp_connections",
			fmt.Sprintf("%d", p.TCPConnections),
			"tcp_connections must not be negative",
			"")
	}
	if p.UDPConnections < 0 {
		result.AddError("prober.udp_connections",
			fmt.Sprintf("%d", p.UDPConnections),
			"udp_connections must not be negative",
			"")
	}
}

func validateLog(cfg *schema.Root, result *ValidationResult) {
	validateLogLevel("log.level", cfg.Log.Level, result)
	validateLogFormat("log.format", cfg.Log.Format, result)

	switch cfg.Log.Output {
	case "", schema.LogOutputStdout, schema.LogOutputStderr:
	case schema.LogOutputFile:
		if cfg.Log.File == "" {
			result.AddError("log.file",
				"",
				"log.file is required when log.output is file",
				"Set log.file to a writable path")
		}
	default:
		result.AddError("log.output",
			cfg.Log.Output,
			"invalid log output",
			"Use one of: stdout, stderr, file")
	}
}

func validateManagement(cfg *schema.Root, result *ValidationResult) {
	if !cfg.Management.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Management.Listen); err != nil {
		result.AddError("management.listen",
			cfg.Management.Listen,
			"invalid listen address",
			"Use host:port, e.g., 127.0.0.1:9117")
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func validatePort(field string, port int, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field,
			fmt.Sprintf("%d", port),
			"port must be between 1 and 65535",
			"Use the well-known discovery port 13117")
	}
}

// validateOptionalPort accepts 0 (ephemeral)
func validateOptionalPort(field string, port int, result *ValidationResult) {
	if port < 0 || port > 65535 {
		result.AddError(field,
			fmt.Sprintf("%d", port),
			"port must be between 0 and 65535",
			"Use 0 to let the system pick a free port")
	}
}

func validateHost(field, host string, result *ValidationResult) {
	if host == "" || host == "localhost" {
		return
	}
	if net.ParseIP(host) == nil {
		result.AddError(field,
			host,
			"invalid host address",
			"Use a valid IP address or 0.0.0.0")
	}
}

func validatePositiveDuration(field string, d time.Duration, result *ValidationResult) {
	if d <= 0 {
		result.AddError(field,
			d.String(),
			"duration must be positive",
			"Use a Go duration string, e.g., 1s or 500ms")
	}
}

func validateLogLevel(field, level string, result *ValidationResult) {
	validLevels := map[string]bool{
		schema.LogLevelDebug: true,
		schema.LogLevelInfo:  true,
		schema.LogLevelWarn:  true,
		schema.LogLevelError: true,
	}
	if !validLevels[level] && level != "" {
		result.AddError(field,
			level,
			"invalid log level",
			"Use one of: debug, info, warn, error")
	}
}

func validateLogFormat(field, format string, result *ValidationResult) {
	validFormats := map[string]bool{
		schema.LogFormatText: true,
		schema.LogFormatJSON: true,
	}
	if !validFormats[format] && format != "" {
		result.AddError(field,
			format,
			"invalid log format",
			"Use one of: text, json")
	}
}
