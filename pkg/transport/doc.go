// Package transport carries the hub's line protocol over a byte stream.
//
// Inbound bytes are handed to a Receiver from the reading goroutine
// (callback context), so a Receiver must only enqueue and signal.
// Outbound chunks go through a Sender which accepts at most one chunk in
// flight and reports its completion asynchronously.
package transport
