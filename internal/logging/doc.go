// Package logging builds the slog loggers used across the pipeline and
// standardizes the structured field keys attached to them.
package logging
