// Package logging builds the slog loggers used across the pipeline and
// centralizes the structured field vocabulary (component, item id, stage,
// correlation id) so log output stays greppable across stages.
package logging
