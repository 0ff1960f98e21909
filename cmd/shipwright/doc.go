// Package main hosts the shipwright CLI.
//
// The root command cuts a release: it resolves the target version (flag or
// prompt), runs preflight checks, shows the change summary and asks for
// confirmation, then drives the release pipeline and prints a per-step
// outcome table. Subcommands expose the read-only pieces on their own:
// `check` for preflight, `notes` for the generated release notes, and
// `config` for scaffolding and validation.
//
// Keep this package lean: release behaviour lives in internal/release and the
// packages it depends on; commands here only wire and render.
package main
