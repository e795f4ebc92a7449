package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Recipe errors
	ErrMalformedRecipe     ErrorCode = "MALFORMED_RECIPE"
	ErrUnsupportedPlatform ErrorCode = "UNSUPPORTED_PLATFORM"
	ErrConflictingPackage  ErrorCode = "CONFLICTING_PACKAGE"

	// Fetch errors
	ErrDownload         ErrorCode = "DOWNLOAD_ERROR"
	ErrChecksumMismatch ErrorCode = "CHECKSUM_MISMATCH"
	ErrArchiveInvalid   ErrorCode = "ARCHIVE_INVALID"

	// Install errors
	ErrConflictingPath    ErrorCode = "CONFLICTING_PATH"
	ErrActionFailed       ErrorCode = "ACTION_FAILED"
	ErrVerificationFailed ErrorCode = "VERIFICATION_FAILED"
	ErrInstallInProgress  ErrorCode = "INSTALL_IN_PROGRESS"

	// State store errors
	ErrNotInstalled ErrorCode = "NOT_INSTALLED"
	ErrStateCorrupt ErrorCode = "STATE_CORRUPT"
)

// Detail keys shared by the installer and the CLI
const (
	DetailRecipe  = "recipe"
	DetailVersion = "version"
	DetailStage   = "stage"
	DetailAction  = "action"
	DetailPath    = "path"
	DetailKind    = "kind"
)

// DownloadKind classifies a download failure
type DownloadKind string

const (
	DownloadTimeout  DownloadKind = "timeout"
	DownloadNetwork  DownloadKind = "network"
	DownloadNotFound DownloadKind = "not-found"
)

// TapkitError represents a structured error with code and details
type TapkitError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *TapkitError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *TapkitError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *TapkitError) Is(target error) bool {
	var targetErr *TapkitError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new TapkitError with the given code and message
func New(code ErrorCode, message string) *TapkitError {
	return &TapkitError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new TapkitError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *TapkitError {
	return &TapkitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a TapkitError
func Wrap(err error, code ErrorCode, message string) *TapkitError {
	if err == nil {
		return nil
	}
	return &TapkitError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *TapkitError {
	if err == nil {
		return nil
	}
	return &TapkitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// NewDownload creates a DOWNLOAD_ERROR of the given kind
func NewDownload(kind DownloadKind, err error, format string, args ...interface{}) *TapkitError {
	e := &TapkitError{
		Code:    ErrDownload,
		Message: fmt.Sprintf(format, args...),
		Details: map[string]interface{}{DetailKind: string(kind)},
		Wrapped: err,
	}
	return e
}

// WithDetail adds a detail to the error
func (e *TapkitError) WithDetail(key string, value interface{}) *TapkitError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *TapkitError) WithDetails(details map[string]interface{}) *TapkitError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var tapkitErr *TapkitError
	if errors.As(err, &tapkitErr) {
		return tapkitErr.Code == code
	}
	return false
}

// HasErrorCode reports whether any TapkitError in the chain carries code.
// IsErrorCode only inspects the outermost one.
func HasErrorCode(err error, code ErrorCode) bool {
	return errors.Is(err, &TapkitError{Code: code})
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a TapkitError
func GetErrorCode(err error) ErrorCode {
	var tapkitErr *TapkitError
	if errors.As(err, &tapkitErr) {
		return tapkitErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a TapkitError
func GetErrorDetails(err error) map[string]interface{} {
	var tapkitErr *TapkitError
	if errors.As(err, &tapkitErr) {
		return tapkitErr.Details
	}
	return nil
}

// GetDetailString returns a string detail from the outermost TapkitError
func GetDetailString(err error, key string) string {
	details := GetErrorDetails(err)
	if details == nil {
		return ""
	}
	if s, ok := details[key].(string); ok {
		return s
	}
	return ""
}

// Is is errors.Is from the standard library
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As from the standard library
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
