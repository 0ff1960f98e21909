// Package services defines shared utilities consumed by the release steps and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and step names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into validation, prerequisite, fatal-step, tolerated-step, and
//     cancellation outcomes.
//
// Use these helpers when wiring new step logic so error handling and
// observability stay uniform across the pipeline.
package services
