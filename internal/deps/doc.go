// Package deps locates the external tools a release shells out to (git, the
// build frontend, the upload tool) and reports their availability and version.
package deps
