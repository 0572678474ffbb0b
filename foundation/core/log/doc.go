// Package log provides the structured logger used by the callexpr libraries
// and services.
//
// A Logger is configured once and then specialised with With* methods, which
// return copies:
//
//	logger := mdwlog.NewWithConfig(mdwlog.Config{Level: mdwlog.LevelDebug, Format: mdwlog.FormatText})
//	parserLog := logger.WithField("component", "callexpr-parser")
//	parserLog.Debug("build started", mdwlog.Fields{"tokens": 12})
//
// Structured errors from the error package can be logged with LogError, which
// picks the level from the error severity.
package log
