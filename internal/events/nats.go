package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Alijeyrad/destek_backend/pkg/constants"
)

// NatsBus publishes on the ticket subject and relays everything received on
// it to local subscribers, so every replica sees every change.
type NatsBus struct {
	nc  *nats.Conn
	sub *nats.Subscription
	h   *hub
}

func NewNatsBus(nc *nats.Conn) (*NatsBus, error) {
	b := &NatsBus{nc: nc, h: newHub()}
	sub, err := nc.Subscribe(constants.SubjectTicketChanged, func(msg *nats.Msg) {
		var ev TicketEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("events: undecodable ticket event", "subject", msg.Subject, "err", err)
			return
		}
		b.h.broadcast(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", constants.SubjectTicketChanged, err)
	}
	b.sub = sub
	return b, nil
}

func (b *NatsBus) Publish(_ context.Context, ev TicketEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode ticket event: %w", err)
	}
	if err := b.nc.Publish(constants.SubjectTicketChanged, data); err != nil {
		return fmt.Errorf("publish ticket event: %w", err)
	}
	return nil
}

func (b *NatsBus) Subscribe(ctx context.Context) (<-chan TicketEvent, error) {
	return b.h.add(ctx)
}

// Close drops the NATS subscription. The connection is owned by the caller.
func (b *NatsBus) Close() error {
	err := b.sub.Unsubscribe()
	b.h.close()
	return err
}
