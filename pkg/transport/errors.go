package transport

import "errors"

var (
	// ErrBusy indicates a chunk is already in flight; retry later.
	ErrBusy = errors.New("transport busy")
	// ErrClosed indicates the transport is closed.
	ErrClosed = errors.New("transport closed")
)
