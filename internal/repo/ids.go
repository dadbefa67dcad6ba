package repo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"airstrip/internal/kv"
)

// Counter slots in the counter namespace.
const (
	EntityCounterKey uint64 = 0
	EventCounterKey  uint64 = 1
)

// ErrCounterFault marks a failure to read or persist an identifier counter.
// Identifier uniqueness can no longer be guaranteed once it occurs.
var ErrCounterFault = errors.New("identifier counter fault")

// Allocator hands out strictly increasing identifiers starting at 0. The
// counter is written in the caller's transaction, so an id is only consumed
// when that transaction commits.
type Allocator struct {
	Key uint64
}

// Current returns the next identifier without consuming it.
func (a Allocator) Current(ctx context.Context, r kv.Reader) (uint64, error) {
	data, err := r.Get(ctx, kv.NSCounter, a.Key)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read counter %d: %v", ErrCounterFault, a.Key, err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: counter %d has %d bytes", ErrCounterFault, a.Key, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Next returns the current counter value and persists value+1.
func (a Allocator) Next(ctx context.Context, tx kv.Txn) (uint64, error) {
	cur, err := a.Current(ctx, tx)
	if err != nil {
		return 0, err
	}
	if cur == math.MaxUint64 {
		return 0, fmt.Errorf("%w: counter %d exhausted", ErrCounterFault, a.Key)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], cur+1)
	if err := tx.Put(ctx, kv.NSCounter, a.Key, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: write counter %d: %v", ErrCounterFault, a.Key, err)
	}
	return cur, nil
}
