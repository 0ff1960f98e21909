// Package preflight provides readiness checks for the tools, paths and
// credentials a release depends on.
//
// These checks run in two contexts:
//   - The release command calls RunAll before the confirmation gate. Any
//     required failure aborts the run before anything is mutated; in dry-run
//     the results are advisory and only logged.
//   - The "shipwright check" command prints every result as a table.
//
// Credential checks are optional: a missing registry or host token is a
// warning here and only becomes fatal in the step that needs it.
package preflight
