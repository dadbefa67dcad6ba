package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"airstrip/internal/domain"
)

const DefaultSubjectPrefix = "airstrip.events"

// Publisher forwards committed events to subscribers outside the process.
type Publisher interface {
	Publish(ctx context.Context, evt domain.Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Event) error { return nil }
func (Nop) Close() error                               { return nil }

// NATSPublisher publishes each event as JSON on <prefix>.<type>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("airstrip"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc, prefix: normalizePrefix(prefix)}, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, ". ")
	if prefix == "" {
		return DefaultSubjectPrefix
	}
	return prefix
}

// Subject is the NATS subject an event of evtType is published on.
func Subject(prefix, evtType string) string {
	return normalizePrefix(prefix) + "." + evtType
}

func (p *NATSPublisher) Publish(ctx context.Context, evt domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(Subject(p.prefix, evt.Type), data); err != nil {
		return fmt.Errorf("publish event %s: %w", evt.ID, err)
	}
	return nil
}

// Subscribe delivers every event published under the prefix until ctx ends.
func (p *NATSPublisher) Subscribe(ctx context.Context, handler func(domain.Event)) error {
	sub, err := p.conn.Subscribe(p.prefix+".>", func(msg *nats.Msg) {
		var evt domain.Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			return
		}
		handler(evt)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", p.prefix, err)
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
			return err
		}
	}
	return nil
}
