package kv

import "github.com/qinhy/singleton-key-value-storage/kv/event"

// PushMessage appends a message to the named queue (the default queue
// when q is empty) and returns the stored item key, or "" on failure.
func (s *Store) PushMessage(message any, q string) string {
	key, err := s.broker.Push(message, q)
	if err != nil {
		s.logger.Error("push failed", "queue", q, "error", err)

		return ""
	}

	return key
}

// PopMessage removes and returns the head message of the named queue,
// or nil when the queue is empty or on failure.
func (s *Store) PopMessage(q string) any {
	message, err := s.broker.Pop(q)
	if err != nil {
		s.logger.Error("pop failed", "queue", q, "error", err)

		return nil
	}

	return message
}

// PeekMessage returns the head message without removing it, or nil when
// the queue is empty or on failure.
func (s *Store) PeekMessage(q string) any {
	message, err := s.broker.Peek(q)
	if err != nil {
		s.logger.Error("peek failed", "queue", q, "error", err)

		return nil
	}

	return message
}

// QueueSize returns the number of messages in the named queue.
func (s *Store) QueueSize(q string) int64 {
	size, err := s.broker.QueueSize(q)
	if err != nil {
		s.logger.Error("queue size failed", "queue", q, "error", err)

		return 0
	}

	return size
}

// ClearQueue removes every message of the named queue.
func (s *Store) ClearQueue(q string) bool {
	if err := s.broker.Clear(q); err != nil {
		s.logger.Error("clear queue failed", "queue", q, "error", err)

		return false
	}

	return true
}

// AddQueueListener subscribes cb to one event kind of the named queue
// and returns the listener id.
func (s *Store) AddQueueListener(q string, cb event.Callback, kind string) string {
	return s.broker.AddListener(q, cb, kind)
}

// RemoveQueueListener unsubscribes a queue listener by raw id.
func (s *Store) RemoveQueueListener(listenerID string) int {
	return s.broker.RemoveListener(listenerID)
}

// ListQueues returns the names of every known queue.
func (s *Store) ListQueues() []string {
	queues, err := s.broker.ListQueues()
	if err != nil {
		s.logger.Error("list queues failed", "error", err)

		return nil
	}

	return queues
}
