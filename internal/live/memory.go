package live

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("live: broker closed")

// MemoryBroker fans out within one process.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]map[*memorySub]struct{}
	closed bool
}

type memorySub struct {
	ch chan []byte
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[*memorySub]struct{})}
}

func (b *MemoryBroker) Kind() string { return "memory" }

func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	publishedTotal.WithLabelValues("memory").Inc()
	for sub := range b.topics[topic] {
		select {
		case sub.ch <- payload:
		default:
			droppedTotal.WithLabelValues("memory").Inc()
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	sub := &memorySub{ch: make(chan []byte, subscriberBuffer)}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memorySub]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	subscribers.WithLabelValues("memory").Inc()

	s := &Subscription{C: sub.ch}
	done := make(chan struct{})
	s.release = func() {
		close(done)
		b.remove(topic, sub)
	}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()
	return s, nil
}

func (b *MemoryBroker) remove(topic string, sub *memorySub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
	close(sub.ch)
	subscribers.WithLabelValues("memory").Dec()
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.topics {
		for sub := range subs {
			close(sub.ch)
			subscribers.WithLabelValues("memory").Dec()
		}
		delete(b.topics, topic)
	}
	return nil
}
