package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig      ErrorCode = "invalid_configuration"
	ErrBindFlags          ErrorCode = "bind_flags_failed"
	ErrReadConfig         ErrorCode = "read_config_failed"
	ErrInvalidInterval    ErrorCode = "invalid_interval"
	ErrInvalidTimeout     ErrorCode = "invalid_timeout"
	ErrInvalidGracePeriod ErrorCode = "invalid_grace_period"
	ErrInvalidBlockSize   ErrorCode = "invalid_block_size"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"
	ErrOpenLogFile     ErrorCode = "open_log_file_failed"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Application errors
	ErrMainLoop  ErrorCode = "main_loop_failed"
	ErrNoDevices ErrorCode = "no_devices_selected"

	// Operation errors
	ErrTimeout ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:           "Internal error occurred",
	ErrInvalidArgument:    "Invalid argument provided",
	ErrInvalidConfig:      "Invalid configuration",
	ErrBindFlags:          "Failed to bind flags",
	ErrReadConfig:         "Failed to read config file",
	ErrInvalidInterval:    "Invalid interval value",
	ErrInvalidTimeout:     "Invalid probe timeout value",
	ErrInvalidGracePeriod: "Invalid grace period value",
	ErrInvalidBlockSize:   "Invalid block size",
	ErrInvalidLogLevel:    "Invalid log level",
	ErrOpenLogFile:        "Failed to open log file",
	ErrInitFailed:         "Initialization failed",
	ErrShutdownFailed:     "Shutdown failed",
	ErrAlreadyRunning:     "Another instance is already running",
	ErrMainLoop:           "Error in main loop",
	ErrNoDevices:          "No devices selected",
	ErrTimeout:            "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// RegisterMessage sets the human readable message for a package-level code.
// Packages call it from init so their codes render like the common ones.
func RegisterMessage(code ErrorCode, msg string) {
	errorMessages[code] = msg
}
