// Package transcript holds the latest meeting transcript in process memory.
// The store is a single guarded slot: writes overwrite, reads see the most
// recent successful upload regardless of which request produced it.
package transcript
