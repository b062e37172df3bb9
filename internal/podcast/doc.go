// Package podcast models the script document consumed by the pipeline:
// clusters of dialogue lines with optional visual accompaniments.
package podcast
