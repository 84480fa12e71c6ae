// Package queue provides a named-queue message broker.
//
// Queues live inside a memory-limited cache under keys of the form
// "_MessageQueue:<b64url(q)>" (per-queue meta) and
// "_MessageQueue:<b64url(q)>:<n>" (items). A per-queue {head, tail}
// index pair gives strict FIFO order; eviction may punch holes in the
// middle of a queue, and pops advance the head past them. Queue
// lifecycle events (pushed, popped, empty, cleared) are emitted through
// an event dispatcher.
package queue
