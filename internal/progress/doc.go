// Package progress implements the publish/subscribe observer that carries
// pipeline events to API subscribers. Queues are bounded: a slow subscriber
// delays delivery briefly and then loses the event rather than stalling the
// pipeline.
package progress
