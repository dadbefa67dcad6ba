package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"airstrip/internal/domain"
	"airstrip/internal/kv"
	"airstrip/internal/repo"
)

// Writer appends change events to the event log namespace. Events are
// written in the caller's transaction and keyed by their own sequence.
type Writer struct {
	Now func() time.Time

	seq repo.Allocator
	log repo.Map[domain.Event]
}

func NewWriter() Writer {
	return Writer{
		Now: time.Now,
		seq: repo.Allocator{Key: repo.EventCounterKey},
		log: repo.NewMap[domain.Event](kv.NSEvents),
	}
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx kv.Txn, evtType, entityKind string, entityID uint64, payload EventPayload) (domain.Event, error) {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.Event{}, fmt.Errorf("marshal event payload: %w", err)
	}
	seq, err := w.seq.Next(ctx, tx)
	if err != nil {
		return domain.Event{}, err
	}
	evt := domain.Event{
		Seq:        seq,
		ID:         uuid.NewString(),
		TS:         uint64(now().UnixNano()),
		Type:       evtType,
		EntityKind: entityKind,
		EntityID:   entityID,
		Payload:    string(data),
	}
	if err := w.log.Insert(ctx, tx, seq, evt); err != nil {
		return domain.Event{}, fmt.Errorf("append event %s: %w", evtType, err)
	}
	return evt, nil
}

// List returns the latest limit events, oldest first. limit <= 0 returns all.
func (w Writer) List(ctx context.Context, r kv.Reader, limit int) ([]domain.Event, error) {
	out := []domain.Event{}
	err := w.log.Scan(ctx, r, func(_ uint64, evt domain.Event) error {
		out = append(out, evt)
		if limit > 0 && len(out) > limit {
			out = out[1:]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
