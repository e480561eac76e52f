// Package watcher monitors an inbox directory for dropped meeting
// recordings and feeds them into the processing pipeline, with a bounded
// number of recordings processed concurrently.
package watcher
