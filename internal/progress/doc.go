// Package progress carries run lifecycle events from the scraper to pluggable
// sinks. Events are batched on a background goroutine so emitters never block.
package progress
