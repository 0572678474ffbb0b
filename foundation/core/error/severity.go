// File: severity.go
// Title: Error Severity Levels
// Description: Defines severity levels. The logger picks the level of a
//              logged error from its severity: bad expressions are info,
//              store failures are errors.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Severity mapping for parser codes

package error

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow covers bad input that the caller can fix
	SeverityLow Severity = iota

	// SeverityMedium covers failures with a workaround
	SeverityMedium

	// SeverityHigh covers failures of a dependency such as the database
	SeverityHigh

	// SeverityCritical covers failures that make the service unusable
	SeverityCritical
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// SeverityFromCode determines the default severity for a code
func SeverityFromCode(code Code) Severity {
	switch code {
	case CodeServiceUnavailable:
		return SeverityCritical
	case CodeDatabaseError, CodeInternal, CodeConfigError:
		return SeverityHigh
	case CodeMalformedExpression, CodeEmptyExpression, CodeUnterminatedQuote,
		CodeInputTooLong, CodeDepthExceeded, CodeInvalidInput, CodeNotFound:
		return SeverityLow
	default:
		return SeverityMedium
	}
}
