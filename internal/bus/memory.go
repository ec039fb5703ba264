package bus

import (
	"sync"

	"chat-core/internal/models"
)

// MemoryBus is an in-process bus for tests and single-node runs. Envelopes
// go through the same encode/decode round trip as the wire path and are
// delivered in publish order on one dedicated dispatch goroutine.
type MemoryBus struct {
	mu       sync.Mutex
	handlers []Handler
	queue    chan models.Envelope
	done     chan struct{}
	closed   bool
	pubs     sync.WaitGroup
	wg       sync.WaitGroup
}

func NewMemoryBus() *MemoryBus {
	b := &MemoryBus{
		queue: make(chan models.Envelope, 64),
		done:  make(chan struct{}),
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

func (b *MemoryBus) dispatch() {
	defer b.wg.Done()
	for env := range b.queue {
		b.mu.Lock()
		handlers := make([]Handler, len(b.handlers))
		copy(handlers, b.handlers)
		b.mu.Unlock()

		for _, h := range handlers {
			h(env)
		}
	}
}

func (b *MemoryBus) Publish(roomID int, env models.Envelope) error {
	data, err := models.EncodeEnvelope(env)
	if err != nil {
		return err
	}
	decoded, err := models.DecodeEnvelope(data)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusUnavailable
	}
	b.pubs.Add(1)
	b.mu.Unlock()
	defer b.pubs.Done()

	// The send happens outside the lock: a full queue blocks only this
	// publisher, never the dispatch goroutine taking the lock to copy
	// handlers.
	select {
	case b.queue <- decoded:
		return nil
	case <-b.done:
		return ErrBusUnavailable
	}
}

func (b *MemoryBus) Subscribe(h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusUnavailable
	}
	b.handlers = append(b.handlers, h)
	return nil
}

// Close stops dispatch after draining queued envelopes. In-flight publishers
// either land in the queue or get ErrBusUnavailable; the queue is only
// closed once none remain.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.pubs.Wait()
	close(b.queue)
	b.wg.Wait()
}
