package async

import (
	"context"
	"sync"

	"github.com/secmon-lab/musubi/pkg/utils/logging"
)

// Mailbox delivers posted values to a handler one at a time, in post order, on its
// own goroutine. Post never blocks and never drops a value; the queue is unbounded.
type Mailbox[T any] struct {
	ctx     context.Context
	handler func(T)

	mu     sync.Mutex
	queue  []T
	closed bool

	wake chan struct{}
	done chan struct{}
}

// NewMailbox starts the delivery goroutine. Close must be called to stop it.
func NewMailbox[T any](ctx context.Context, handler func(T)) *Mailbox[T] {
	m := &Mailbox[T]{
		ctx:     ctx,
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Post enqueues v. Values posted after Close are ignored.
func (m *Mailbox[T]) Post(v T) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, v)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Close stops delivery. Values still queued are discarded. Close is idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
	close(m.done)
}

func (m *Mailbox[T]) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}

		for {
			m.mu.Lock()
			if m.closed || len(m.queue) == 0 {
				m.mu.Unlock()
				break
			}
			v := m.queue[0]
			var zero T
			m.queue[0] = zero
			m.queue = m.queue[1:]
			m.mu.Unlock()

			m.deliver(v)
		}
	}
}

func (m *Mailbox[T]) deliver(v T) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(m.ctx).Error("panic in mailbox handler", "panic", r)
		}
	}()
	m.handler(v)
}
