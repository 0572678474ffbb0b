// Package error provides the structured error type used across callexpr.
//
// Errors carry a Code for classification, a Severity that drives logging and
// a set of details. Sentinels built with New(...).WithCode(...) can be matched
// with errors.Is because Error.Is compares codes:
//
//	var ErrEmpty = mdwerror.New("empty expression").WithCode(mdwerror.CodeEmptyExpression)
//
//	err := mdwerror.New("no command found").WithCode(mdwerror.CodeEmptyExpression)
//	errors.Is(err, ErrEmpty) // true
package error
