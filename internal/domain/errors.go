package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound = errors.New("download does not exist")

	// ErrSuperseded settles a stream whose registry entry was replaced by a
	// fresh download of the same resource.
	ErrSuperseded = errors.New("download was restarted under a new stream")

	ErrInvalidTransferToken = errors.New("invalid transfer token")
	ErrInvalidRequest       = errors.New("invalid request")
)

// RequestBuildError is returned when a declared request cannot be turned
// into a transport request.
type RequestBuildError struct {
	Err error
}

// Error returns the error message
func (e *RequestBuildError) Error() string {
	return "creating request failed: " + errString(e.Err)
}

// Unwrap returns the underlying error
func (e *RequestBuildError) Unwrap() error {
	return e.Err
}

// RequestExecutionError is returned when the transport fails to execute a request.
type RequestExecutionError struct {
	Err error
}

// Error returns the error message
func (e *RequestExecutionError) Error() string {
	return "request failed: " + errString(e.Err)
}

// Unwrap returns the underlying error
func (e *RequestExecutionError) Unwrap() error {
	return e.Err
}

// ResponseResolutionError is returned when a response could not be mapped
// onto a declared response rule.
type ResponseResolutionError struct {
	Err error
}

// Error returns the error message
func (e *ResponseResolutionError) Error() string {
	return "creating response failed: " + errString(e.Err)
}

// Unwrap returns the underlying error
func (e *ResponseResolutionError) Unwrap() error {
	return e.Err
}

// NoMatchingRuleError means no declared status range contains the status code.
type NoMatchingRuleError struct {
	StatusCode int
}

func (e *NoMatchingRuleError) Error() string {
	return fmt.Sprintf("no response rule for status code %d", e.StatusCode)
}

// TextDecodingError means the body is not valid text under the declared encoding.
type TextDecodingError struct {
	Encoding string
	Err      error
}

func (e *TextDecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding body as %q text failed: %v", e.Encoding, e.Err)
	}
	return fmt.Sprintf("decoding body as %q text failed", e.Encoding)
}

func (e *TextDecodingError) Unwrap() error {
	return e.Err
}

// StructuredDecodingError wraps a failure of a structured (JSON) decode function.
type StructuredDecodingError struct {
	Err error
}

func (e *StructuredDecodingError) Error() string {
	return "decoding structured body failed: " + errString(e.Err)
}

func (e *StructuredDecodingError) Unwrap() error {
	return e.Err
}

// CustomDecodingError wraps a failure of a caller supplied decode function.
type CustomDecodingError struct {
	Err error
}

func (e *CustomDecodingError) Error() string {
	return "decoding body failed: " + errString(e.Err)
}

func (e *CustomDecodingError) Unwrap() error {
	return e.Err
}

// TransferError settles a download stream when the transport reports a
// failure other than cancellation.
type TransferError struct {
	URL string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("download of %s failed: %s", e.URL, errString(e.Err))
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// MoveError settles a download stream when the finished payload cannot be
// moved to its destination.
type MoveError struct {
	From string
	To   string
	Err  error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("moving download from %s to %s failed: %s", e.From, e.To, errString(e.Err))
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error refers to an unknown download
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransferFailure returns true if a download failed in the transport
func IsTransferFailure(err error) bool {
	var te *TransferError
	return errors.As(err, &te)
}

// IsMoveFailure returns true if a finished download could not be moved
func IsMoveFailure(err error) bool {
	var me *MoveError
	return errors.As(err, &me)
}

// IsResolutionFailure returns true if the error happened while mapping a response
func IsResolutionFailure(err error) bool {
	var re *ResponseResolutionError
	return errors.As(err, &re)
}

// GetNoMatchingStatus returns the status code if no response rule matched
func GetNoMatchingStatus(err error) (int, bool) {
	var ne *NoMatchingRuleError
	if errors.As(err, &ne) {
		return ne.StatusCode, true
	}
	return 0, false
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
