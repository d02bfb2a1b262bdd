// Package errors provides the classified error primitives used across interleave.
//
// Every stage of the build pipeline reports failures as a ClassifiedError so the
// CLI can pick an exit code and the logs carry the offending file and stage:
//   - ErrorCategory: which stage or subsystem failed (expand, resolve, write, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether repeating the operation can help
//   - ErrorContext: structured key/value context (file, target, format)
//
// Example usage:
//
//	err := errors.WrapError(readErr, errors.CategoryRead, "could not include file").
//		WithContext("file", file).
//		Build()
package errors
