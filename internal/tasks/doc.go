// Package tasks persists the generation task journal in SQLite so task
// status survives process restarts and stays queryable after the in-memory
// progress state is cleaned up.
package tasks
