// Package services provides error classification markers and context plumbing
// shared by the pipeline components.
package services
