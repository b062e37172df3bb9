// Package assetcache implements the content-addressed cache for rendered
// visuals, synthesized audio, and animated clips. Entries are keyed by a
// SHA-256 digest over the semantic inputs plus a renderer version tag, so a
// format change busts stale entries without touching existing files.
package assetcache
