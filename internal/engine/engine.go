package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"airstrip/internal/domain"
	"airstrip/internal/events"
	"airstrip/internal/kv"
	"airstrip/internal/metrics"
	"airstrip/internal/repo"
)

// Engine runs every airstrip operation against one store. Mutations are
// serialized by a single lock and each runs in exactly one store update, so
// check-then-insert sequences cannot interleave. Writers in other processes
// are serialized by the store itself.
type Engine struct {
	Repo      repo.Repo
	Events    events.Writer
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Logger    *slog.Logger
	Now       func() time.Time

	mu sync.Mutex
}

func New(store kv.Store) *Engine {
	return &Engine{
		Repo:      repo.New(store),
		Events:    events.NewWriter(),
		Publisher: events.Nop{},
		Metrics:   metrics.Nop{},
		Logger:    slog.Default(),
		Now:       time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// nowNanos is the host clock as Unix nanoseconds.
func (e *Engine) nowNanos() uint64 {
	n := e.now().UnixNano()
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// change is the transaction handed to a mutation. Events emitted through it
// are appended in the same transaction and published once it commits.
type change struct {
	kv.Txn
	ctx     context.Context
	w       events.Writer
	emitted []domain.Event
}

func (c *change) emit(evtType, entityKind string, entityID uint64, payload events.EventPayload) error {
	evt, err := c.w.Append(c.ctx, c.Txn, evtType, entityKind, entityID, payload)
	if err != nil {
		return err
	}
	c.emitted = append(c.emitted, evt)
	return nil
}

func (e *Engine) mutate(ctx context.Context, op string, fn func(c *change) error) (err error) {
	start := time.Now()
	defer func() { e.observe(ctx, op, start, err) }()

	w := e.Events
	w.Now = e.now
	var emitted []domain.Event
	e.mu.Lock()
	err = e.Repo.Update(ctx, func(tx kv.Txn) error {
		c := &change{Txn: tx, ctx: ctx, w: w}
		if err := fn(c); err != nil {
			return err
		}
		emitted = c.emitted
		return nil
	})
	e.mu.Unlock()
	if err != nil {
		err = classify(err)
		if IsFatal(err) {
			e.logger().Error("identifier allocation failed", "op", op, "err", err)
		}
		return err
	}
	e.publish(ctx, emitted)
	return nil
}

func (e *Engine) publish(ctx context.Context, emitted []domain.Event) {
	if e.Publisher == nil {
		return
	}
	for _, evt := range emitted {
		if err := e.Publisher.Publish(ctx, evt); err != nil {
			e.logger().Warn("publish event", "type", evt.Type, "seq", evt.Seq, "err", err)
		}
	}
}

// read wraps a query with metrics and error classification.
func (e *Engine) read(ctx context.Context, op string, fn func(r kv.Reader) error) (err error) {
	start := time.Now()
	defer func() { e.observe(ctx, op, start, err) }()
	return classify(fn(e.Repo.Store))
}

func (e *Engine) observe(ctx context.Context, op string, start time.Time, err error) {
	d := time.Since(start)
	if e.Metrics != nil {
		e.Metrics.Observe(ctx, op, err == nil, d)
	}
	if err != nil {
		e.logger().Debug("operation failed", "op", op, "duration", d, "err", err)
		return
	}
	e.logger().Debug("operation", "op", op, "duration", d)
}

// requireAirstrip is the creation-time existence gate for airstrip refs.
func (e *Engine) requireAirstrip(ctx context.Context, r kv.Reader, id uint64) error {
	ok, err := e.Repo.Airstrips.Contains(ctx, r, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("Airstrip")
	}
	return nil
}

// RecentEvents returns the latest limit change events, oldest first.
func (e *Engine) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	var out []domain.Event
	err := e.read(ctx, "list_events", func(r kv.Reader) error {
		var err error
		out, err = e.Events.List(ctx, r, limit)
		return err
	})
	return out, err
}
