// Package events carries ticket change notifications between the services,
// the live feed and the notification worker.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Alijeyrad/destek_backend/internal/model"
)

type Kind string

const (
	KindCreated            Kind = "created"
	KindStatusChanged      Kind = "status_changed"
	KindAssigned           Kind = "assigned"
	KindTechnicianAssigned Kind = "technician_assigned"
	KindReplied            Kind = "replied"
	KindRated              Kind = "rated"
	KindDeleted            Kind = "deleted"
)

// TicketEvent describes one change to a ticket. Subscribers re-read state
// from storage; the event only says what moved.
type TicketEvent struct {
	Kind         Kind         `json:"kind"`
	TicketID     string       `json:"ticket_id"`
	Title        string       `json:"title,omitempty"`
	Status       model.Status `json:"status,omitempty"`
	PrevStatus   model.Status `json:"prev_status,omitempty"`
	CreatorID    string       `json:"creator_id,omitempty"`
	TeamID       string       `json:"team_id,omitempty"`
	TechnicianID string       `json:"technician_id,omitempty"`
	ActorID      string       `json:"actor_id,omitempty"`
	At           time.Time    `json:"at"`
}

// Bus publishes ticket events and fans them out to subscribers. A
// subscription ends, and its channel is closed, when ctx is cancelled.
type Bus interface {
	Publish(ctx context.Context, ev TicketEvent) error
	Subscribe(ctx context.Context) (<-chan TicketEvent, error)
	Close() error
}

const subscriberBuffer = 64

// hub is the local fan-out shared by both Bus implementations.
type hub struct {
	mu     sync.RWMutex
	subs   map[chan TicketEvent]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: map[chan TicketEvent]struct{}{}}
}

func (h *hub) add(ctx context.Context) (<-chan TicketEvent, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	ch := make(chan TicketEvent, subscriberBuffer)
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(ch)
	}()
	return ch, nil
}

func (h *hub) remove(ch chan TicketEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
}

func (h *hub) broadcast(ev TicketEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("events: subscriber buffer full, event skipped", "ticket_id", ev.TicketID, "kind", ev.Kind)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
