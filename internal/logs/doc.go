// Package logs reads the per-run JSON logs written during releases.
//
// It locates run logs by start time or run ID, tails them with bounded
// memory, and renders JSON records as compact one-line entries for the
// `shipwright logs` command. Follow mode polls for appended lines until the
// caller's context is cancelled.
package logs
