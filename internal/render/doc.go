// Package render turns visual descriptions into normalized raster assets.
// Slides are markdown rendered to HTML and captured in a headless browser;
// diagrams go through the mermaid CLI. Both land on a white canvas at the
// target resolution with a fixed margin. Animated renders record a scrolling
// page instead of a static capture.
package render
