package metrics

import "github.com/Gimel12/nvme-tool-ubuntu/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("metrics_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("metrics_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("metrics_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("metrics_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("metrics_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed
	ErrQueryFailed  = errors.ErrorCode("metrics_query_failed")

	// Recording Errors
	ErrRecordFailed = errors.ErrorCode("metrics_record_failed")

	ErrOperationTimeout = errors.ErrTimeout
)

func init() {
	errors.RegisterMessage(ErrInvalidDBPath, "Invalid telemetry database path")
	errors.RegisterMessage(ErrSchemaInitFailed, "Failed to initialize telemetry schema")
	errors.RegisterMessage(ErrSchemaValidationFailed, "Failed to validate telemetry schema")
	errors.RegisterMessage(ErrSchemaMigrationFailed, "Failed to migrate telemetry schema")
	errors.RegisterMessage(ErrTransactionFailed, "Telemetry database transaction failed")
	errors.RegisterMessage(ErrQueryFailed, "Failed to query telemetry history")
	errors.RegisterMessage(ErrRecordFailed, "Failed to record telemetry")
}
