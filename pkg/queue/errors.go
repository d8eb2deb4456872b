package queue

import "errors"

var (
	// ErrFull indicates the item was dropped because the queue is full.
	ErrFull = errors.New("queue full")
)
