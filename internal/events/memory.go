package events

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("event bus closed")

// MemoryBus delivers events inside one process.
type MemoryBus struct {
	h *hub
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{h: newHub()}
}

func (b *MemoryBus) Publish(_ context.Context, ev TicketEvent) error {
	b.h.mu.RLock()
	closed := b.h.closed
	b.h.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	b.h.broadcast(ev)
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan TicketEvent, error) {
	return b.h.add(ctx)
}

func (b *MemoryBus) Close() error {
	b.h.close()
	return nil
}
