// Package errors provides standardized error handling for the reconciler and
// its BPMN job workers.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeVersionNotFound ErrorCode = "VERSION_NOT_FOUND"
	ErrCodeInvalidAsset    ErrorCode = "INVALID_ASSET"
	ErrCodeCatalogNotFound ErrorCode = "CATALOG_NOT_FOUND"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeUpdateFailed    ErrorCode = "UPDATE_FAILED"
	ErrCodeRunRecordFailed ErrorCode = "RUN_RECORD_FAILED"

	ErrCodeBrokerUnavailable ErrorCode = "BROKER_UNAVAILABLE"
	ErrCodeBrokerRejected    ErrorCode = "BROKER_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code, so callers can test against the
// exported sentinels with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key to the error's metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrVersionNotFound = &StandardError{Code: ErrCodeVersionNotFound}
	ErrInvalidAsset    = &StandardError{Code: ErrCodeInvalidAsset}
	ErrQueryFailed     = &StandardError{Code: ErrCodeQueryExecutionFailed}
	ErrQueryTimeout    = &StandardError{Code: ErrCodeQueryTimeout}
	ErrUpdateFailed    = &StandardError{Code: ErrCodeUpdateFailed}
	ErrInvalidInput    = &StandardError{Code: ErrCodeInvalidInput}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewVersionNotFoundError reports that no active vehicle master exists for a state.
func NewVersionNotFoundError(state string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVersionNotFound,
		Message:   "No active vehicle master for state",
		Details:   fmt.Sprintf("state: %s", state),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidAssetError reports a legacy asset whose descriptor cannot be matched.
func NewInvalidAssetError(assetID interface{}, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidAsset,
		Message:   "Legacy asset descriptor is invalid",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"assetId": fmt.Sprint(assetID)},
		Timestamp: time.Now().UTC(),
	}
}

func NewCatalogNotFoundError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogNotFound,
		Message:   "No vehicle catalog entry matches the descriptor",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Failed to connect to database",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewQueryExecutionFailedError wraps a failed stage query.
func NewQueryExecutionFailedError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Query execution failed",
		Details:   fmt.Sprintf("stage: %s, error: %v", stage, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"stage": stage},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewQueryTimeoutError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Query timed out",
		Details:   fmt.Sprintf("stage: %s", stage),
		Retryable: true,
		Metadata:  map[string]interface{}{"stage": stage},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewUpdateFailedError wraps a failed write to the staging, log or quotes collections.
func NewUpdateFailedError(target string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpdateFailed,
		Message:   "Failed to persist quote update",
		Details:   fmt.Sprintf("target: %s, error: %v", target, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"target": target},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewRunRecordFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRunRecordFailed,
		Message:   "Failed to record reconciliation run",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewBrokerError wraps a failed Zeebe gateway command. Transport failures
// are retryable, rejections are not.
func NewBrokerError(operation string, err error, retryable bool) *StandardError {
	code := ErrCodeBrokerRejected
	if retryable {
		code = ErrCodeBrokerUnavailable
	}
	return &StandardError{
		Code:      code,
		Message:   "Zeebe command failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: retryable,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeVersionNotFound:          "VERSION_NOT_FOUND",
	ErrCodeInvalidAsset:             "INVALID_ASSET",
	ErrCodeCatalogNotFound:          "CATALOG_NOT_FOUND",
	ErrCodeInvalidInput:             "INVALID_INPUT",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeUpdateFailed:             "UPDATE_FAILED",
	ErrCodeRunRecordFailed:          "RUN_RECORD_FAILED",
	ErrCodeBrokerUnavailable:        "BROKER_UNAVAILABLE",
	ErrCodeBrokerRejected:           "BROKER_REJECTED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeUpdateFailed,
		ErrCodeBrokerUnavailable:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeRunRecordFailed:
		return 2

	default:
		return 0 // business errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "UPDATE") || strings.Contains(codeStr, "RECORD"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "BROKER"):
		return "BROKER"
	case strings.Contains(codeStr, "VERSION") || strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// AsStandardError normalizes any error to a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	for e := err; e != nil; {
		if stdErr, ok := e.(*StandardError); ok {
			return stdErr
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
