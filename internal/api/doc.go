// Package api exposes the generation pipeline over HTTP: task submission,
// a server-sent-events progress stream, and status polling.
package api
