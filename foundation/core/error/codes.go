// File: codes.go
// Title: Error Code Definitions
// Description: Defines the error codes used to classify failures of the
//              expression parser and of the services built around it.
//              Transports map these codes onto gRPC and HTTP status codes.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Expression parser codes

package error

// Code represents a structured error code for categorizing errors
type Code string

const (
	// Generic codes
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeTimeout      Code = "TIMEOUT"

	// Expression parsing
	CodeMalformedExpression Code = "MALFORMED_EXPRESSION"
	CodeEmptyExpression     Code = "EMPTY_EXPRESSION"
	CodeUnterminatedQuote   Code = "UNTERMINATED_QUOTE"
	CodeInputTooLong        Code = "INPUT_TOO_LONG"
	CodeDepthExceeded       Code = "DEPTH_EXCEEDED"

	// Infrastructure
	CodeConfigError        Code = "CONFIG_ERROR"
	CodeDatabaseError      Code = "DATABASE_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// IsValid checks if the error code is a known code
func (c Code) IsValid() bool {
	switch c {
	case CodeUnknown, CodeInternal, CodeNotFound, CodeInvalidInput, CodeTimeout,
		CodeMalformedExpression, CodeEmptyExpression, CodeUnterminatedQuote,
		CodeInputTooLong, CodeDepthExceeded,
		CodeConfigError, CodeDatabaseError, CodeServiceUnavailable:
		return true
	default:
		return false
	}
}

// Category returns the high-level category of the error code
func (c Code) Category() string {
	switch c {
	case CodeMalformedExpression, CodeEmptyExpression, CodeUnterminatedQuote:
		return "syntax"
	case CodeInputTooLong, CodeDepthExceeded, CodeInvalidInput:
		return "limits"
	case CodeConfigError:
		return "configuration"
	case CodeDatabaseError, CodeServiceUnavailable, CodeTimeout:
		return "infrastructure"
	default:
		return "generic"
	}
}

// IsClientError reports whether the code describes bad caller input rather
// than a failure of the system
func (c Code) IsClientError() bool {
	switch c.Category() {
	case "syntax", "limits":
		return true
	}
	return c == CodeNotFound
}
