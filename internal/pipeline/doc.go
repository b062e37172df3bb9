// Package pipeline orchestrates a generation task through its three phases:
// asset rendering, audio synthesis, and video composition. It owns progress
// event publication and the task journal updates.
package pipeline
