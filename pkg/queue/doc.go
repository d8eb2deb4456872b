// Package queue provides bounded, non-blocking queues bridging callback
// context (serial reader, notification dispatch, timers) and the
// deferred-work Loop.
//
// Producers never block: a full queue drops the item and returns ErrFull.
// Consumers never block: an empty queue reports ok == false.
// Each queue has exactly one consumer, which must be a Loop job.
package queue
