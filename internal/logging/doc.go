// Package logging builds the slog loggers used across the pipeline.
//
// It provides a console handler for interactive use, a JSON handler for
// machine-readable output, standardized field names, and helpers that derive
// structured attributes (conversation id, stage, correlation id) from context
// so every log line emitted during a pipeline invocation carries the same
// identifiers.
package logging
