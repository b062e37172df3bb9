// Package browser drives a headless Chromium instance to capture rendered
// HTML: static screenshots for slide visuals and screencast recordings for
// animated clips.
package browser
